package parser

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/customeros/mxvalidator/dto"
	mxerrors "github.com/customeros/mxvalidator/internal/errors"
	"github.com/customeros/mxvalidator/internal/utils"
)

const (
	ColumnEmail  = "email"
	ColumnDomain = "domain"

	placeholderLocalPart = "placeholder"
	utf8BOM              = "\ufeff"
)

const (
	MsgParseFailed    = "CSV parsing failed"
	MsgEmptyFile      = "CSV file is empty"
	MsgMissingColumns = `CSV must contain "email" or "domain" column`
	MsgNoValidRecords = "No valid records found in CSV"
)

// Parse reads a header-first CSV upload and returns one normalised pair per
// usable row, in file order. Duplicate rows are kept. Every rejection is a
// *errors.ValidationError.
func Parse(r io.Reader) ([]dto.RecordPair, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, mxerrors.NewValidationError(MsgEmptyFile, "")
	}
	if err != nil {
		return nil, mxerrors.NewValidationError(MsgParseFailed, err.Error())
	}

	emailIdx, domainIdx := columnIndexes(header)
	if emailIdx < 0 && domainIdx < 0 {
		return nil, mxerrors.NewValidationError(MsgMissingColumns, "")
	}

	var pairs []dto.RecordPair
	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, mxerrors.NewValidationError(MsgParseFailed, err.Error())
		}
		rows++

		pair, ok := normalizeRow(field(record, emailIdx), field(record, domainIdx))
		if ok {
			pairs = append(pairs, pair)
		}
	}

	if rows == 0 {
		return nil, mxerrors.NewValidationError(MsgEmptyFile, "")
	}
	if len(pairs) == 0 {
		return nil, mxerrors.NewValidationError(MsgNoValidRecords, "")
	}
	return pairs, nil
}

func columnIndexes(header []string) (emailIdx, domainIdx int) {
	emailIdx, domainIdx = -1, -1
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		switch name {
		case ColumnEmail:
			if emailIdx < 0 {
				emailIdx = i
			}
		case ColumnDomain:
			if domainIdx < 0 {
				domainIdx = i
			}
		}
	}
	return emailIdx, domainIdx
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func normalizeRow(email, domain string) (dto.RecordPair, bool) {
	email = strings.TrimSpace(email)
	domain = utils.NormalizeDomain(domain)

	if domain == "" && email != "" {
		domain = utils.ExtractDomainFromEmail(email)
	}
	if email == "" && domain != "" {
		email = placeholderLocalPart + "@" + domain
	}

	if email == "" || domain == "" {
		return dto.RecordPair{}, false
	}
	return dto.RecordPair{Email: email, Domain: domain}, true
}
