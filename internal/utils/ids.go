package utils

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func Now() time.Time {
	return time.Now().UTC()
}

func GenerateNanoIDWithPrefix(prefix string, size int) string {
	id, err := gonanoid.Generate(idAlphabet, size)
	if err != nil {
		panic(err)
	}
	if prefix == "" {
		return id
	}
	return fmt.Sprintf("%s_%s", prefix, id)
}

// GenerateBatchID combines a millisecond timestamp with 16 random base36
// characters (~82 bits), so concurrent uploads never share an id.
func GenerateBatchID() string {
	return fmt.Sprintf("batch_%d_%s", time.Now().UnixMilli(), GenerateNanoIDWithPrefix("", 16))
}

// GenerateToken returns a url-safe random token of the given length.
func GenerateToken(size int) (string, error) {
	return gonanoid.New(size)
}
