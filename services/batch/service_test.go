package batch

import (
	"context"
	"errors"
	"net"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mxvalidator/config"
	"github.com/customeros/mxvalidator/dto"
	"github.com/customeros/mxvalidator/internal/enum"
	mxerrors "github.com/customeros/mxvalidator/internal/errors"
	"github.com/customeros/mxvalidator/internal/logger"
	"github.com/customeros/mxvalidator/internal/models"
	"github.com/customeros/mxvalidator/internal/repository"
	"github.com/customeros/mxvalidator/services/resolver"
)

type memoryRecordRepository struct {
	mu            sync.Mutex
	nextID        uint64
	records       []*models.EmailRecord
	createErr     error
	failUpdateFor map[string]bool
}

func (r *memoryRecordRepository) CreateBatch(_ context.Context, records []*models.EmailRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, record := range records {
		r.nextID++
		record.ID = r.nextID
		stored := *record
		r.records = append(r.records, &stored)
	}
	return nil
}

func (r *memoryRecordRepository) UpdateDomainResolution(_ context.Context, batchID, domain string, status enum.ScanStatus, mxRecords []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdateFor[domain] {
		return 0, errors.New("connection reset")
	}
	var affected int64
	for _, record := range r.records {
		if record.BatchID == batchID && record.Domain == domain && record.MxScanStatus == enum.ScanStatusPending {
			record.MxScanStatus = status
			record.MxRecords = mxRecords
			affected++
		}
	}
	return affected, nil
}

func (r *memoryRecordRepository) GetByBatch(_ context.Context, batchID string) ([]*models.EmailRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.EmailRecord
	for _, record := range r.records {
		if record.BatchID == batchID {
			copied := *record
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memoryRecordRepository) GetAll(ctx context.Context) ([]*models.EmailRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.EmailRecord, 0, len(r.records))
	for i := len(r.records) - 1; i >= 0; i-- {
		copied := *r.records[i]
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memoryRecordRepository) FindStalePending(context.Context, time.Time, int) ([]models.PendingDomain, error) {
	return nil, nil
}

// staticLookup answers from a fixed table and honours cancellation.
type staticLookup struct {
	mu      sync.Mutex
	answers map[string][]*net.MX
	calls   []string
}

func (l *staticLookup) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	l.mu.Lock()
	l.calls = append(l.calls, name)
	l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	answer, ok := l.answers[name]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
	}
	return answer, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.BatchCompleted
	err    error
}

func (p *recordingPublisher) PublishBatchCompleted(_ context.Context, event dto.BatchCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) PublishSendVerificationEmail(context.Context, dto.SendVerificationEmail) error {
	return nil
}

func (p *recordingPublisher) Close() error {
	return nil
}

type fixture struct {
	repo      *memoryRecordRepository
	lookup    *staticLookup
	publisher *recordingPublisher
	service   *batchService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewAppLogger(&logger.Config{DevMode: true})
	log.InitLogger()

	f := &fixture{
		repo: &memoryRecordRepository{failUpdateFor: map[string]bool{}},
		lookup: &staticLookup{answers: map[string][]*net.MX{
			"x.com": {{Host: "mx1.x.com.", Pref: 10}},
			"z.com": {{Host: "alt.z.com.", Pref: 20}, {Host: "aspmx.z.com.", Pref: 5}},
		}},
		publisher: &recordingPublisher{},
	}
	domainResolver := resolver.NewDomainResolver(&config.ResolverConfig{Concurrency: 4, Timeout: time.Second}, f.lookup, log)
	repos := &repository.Repositories{EmailRecordRepository: f.repo}
	f.service = NewBatchService(log, repos, domainResolver, f.publisher).(*batchService)
	return f
}

func recordsByEmail(records []*models.EmailRecord) map[string]*models.EmailRecord {
	out := make(map[string]*models.EmailRecord, len(records))
	for _, record := range records {
		out[record.Email] = record
	}
	return out
}

func TestIngest_ResolvesEachDomainOnce(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.Ingest(context.Background(), strings.NewReader("email\na@x.com\nb@x.com\nc@y.com\n"))

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.BatchID, "batch_"))
	assert.Equal(t, 3, result.RecordsProcessed)
	assert.Equal(t, 2, result.Domains)
	assert.Equal(t, 1, result.CompletedDomains)
	assert.Equal(t, 1, result.FailedDomains)
	assert.Equal(t, 0, result.WriteBackFailures)
	assert.ElementsMatch(t, []string{"x.com", "y.com"}, f.lookup.calls)

	records, err := f.service.GetRecords(context.Background(), result.BatchID)
	require.NoError(t, err)
	require.Len(t, records, 3)

	byEmail := recordsByEmail(records)
	assert.Equal(t, enum.ScanStatusCompleted, byEmail["a@x.com"].MxScanStatus)
	assert.Equal(t, []string{"10 mx1.x.com"}, []string(byEmail["a@x.com"].MxRecords))
	assert.Equal(t, enum.ScanStatusCompleted, byEmail["b@x.com"].MxScanStatus)
	assert.Equal(t, enum.ScanStatusFailed, byEmail["c@y.com"].MxScanStatus)
	assert.Empty(t, byEmail["c@y.com"].MxRecords)

	for _, record := range records {
		assert.Equal(t, result.BatchID, record.BatchID)
		assert.Equal(t, records[0].CreatedAt, record.CreatedAt)
	}

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, dto.BatchCompleted{
		BatchID:          result.BatchID,
		Records:          3,
		Domains:          2,
		CompletedDomains: 1,
		FailedDomains:    1,
	}, f.publisher.events[0])
}

func TestIngest_SortsRecordsByPriority(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.Ingest(context.Background(), strings.NewReader("domain\nz.com\n"))
	require.NoError(t, err)

	records, err := f.service.GetRecords(context.Background(), result.BatchID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "placeholder@z.com", records[0].Email)
	assert.Equal(t, []string{"5 aspmx.z.com", "20 alt.z.com"}, []string(records[0].MxRecords))
}

func TestIngest_ValidationErrorStoresNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Ingest(context.Background(), strings.NewReader("email\n"))

	var validationErr *mxerrors.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Empty(t, f.repo.records)
	assert.Empty(t, f.lookup.calls)
	assert.Empty(t, f.publisher.events)
}

func TestIngest_StorageErrorSkipsResolution(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = errors.New("database is down")

	_, err := f.service.Ingest(context.Background(), strings.NewReader("email\na@x.com\n"))

	var storageErr *mxerrors.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "insert batch", storageErr.Op)
	assert.Empty(t, f.lookup.calls)
}

func TestIngest_WriteBackFailureIsIsolated(t *testing.T) {
	f := newFixture(t)
	f.repo.failUpdateFor["x.com"] = true

	result, err := f.service.Ingest(context.Background(), strings.NewReader("email\na@x.com\nc@y.com\n"))

	require.NoError(t, err)
	assert.Equal(t, 1, result.WriteBackFailures)

	records, err := f.service.GetRecords(context.Background(), result.BatchID)
	require.NoError(t, err)
	byEmail := recordsByEmail(records)
	assert.Equal(t, enum.ScanStatusPending, byEmail["a@x.com"].MxScanStatus)
	assert.Equal(t, enum.ScanStatusFailed, byEmail["c@y.com"].MxScanStatus)
}

func TestIngest_SurvivesCallerCancellation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.service.Ingest(ctx, strings.NewReader("email\na@x.com\n"))

	require.NoError(t, err)
	records, err := f.service.GetRecords(context.Background(), result.BatchID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, enum.ScanStatusCompleted, records[0].MxScanStatus)
}

func TestIngest_PublisherFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker unavailable")

	result, err := f.service.Ingest(context.Background(), strings.NewReader("email\na@x.com\n"))

	require.NoError(t, err)
	assert.Equal(t, 1, result.CompletedDomains)
}

func TestIngest_WithoutPublisher(t *testing.T) {
	f := newFixture(t)
	f.service.publisher = nil

	_, err := f.service.Ingest(context.Background(), strings.NewReader("email\na@x.com\n"))

	require.NoError(t, err)
	assert.Empty(t, f.publisher.events)
}

func TestProcessDomain_UpdatesPendingRows(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.CreateBatch(context.Background(), []*models.EmailRecord{
		{Email: "a@x.com", Domain: "x.com", MxScanStatus: enum.ScanStatusPending, BatchID: "batch_1"},
		{Email: "b@x.com", Domain: "x.com", MxScanStatus: enum.ScanStatusPending, BatchID: "batch_1"},
		{Email: "a@x.com", Domain: "x.com", MxScanStatus: enum.ScanStatusPending, BatchID: "batch_2"},
	}))

	outcome, err := f.service.ProcessDomain(context.Background(), "batch_1", "x.com")

	require.NoError(t, err)
	assert.Equal(t, enum.ResolutionResolved, outcome)

	batch1, _ := f.service.GetRecords(context.Background(), "batch_1")
	for _, record := range batch1 {
		assert.Equal(t, enum.ScanStatusCompleted, record.MxScanStatus)
	}
	batch2, _ := f.service.GetRecords(context.Background(), "batch_2")
	assert.Equal(t, enum.ScanStatusPending, batch2[0].MxScanStatus)
}

func TestGetAllRecords_NewestFirst(t *testing.T) {
	f := newFixture(t)
	first, err := f.service.Ingest(context.Background(), strings.NewReader("email\na@x.com\n"))
	require.NoError(t, err)
	second, err := f.service.Ingest(context.Background(), strings.NewReader("email\nb@x.com\n"))
	require.NoError(t, err)

	records, err := f.service.GetAllRecords(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.BatchID, records[0].BatchID)
	assert.Equal(t, first.BatchID, records[1].BatchID)
	assert.NotEqual(t, first.BatchID, second.BatchID)
}
