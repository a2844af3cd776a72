package service

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

var DefaultSignatureProperties = []string{
	"transaction.id",
	"transaction.status",
	"transaction.amount_in_cents",
}

// Checksum is hex(sha256(values of properties read from data, timestamp, secret)).
func Checksum(data json.RawMessage, properties []string, timestamp int64, secret string) (string, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	tree := map[string]interface{}{}
	if err := decoder.Decode(&tree); err != nil {
		return "", fmt.Errorf("failed decoding event data with error=%w", err)
	}

	var concatenated strings.Builder
	for _, property := range properties {
		value, err := lookup(tree, property)
		if err != nil {
			return "", err
		}
		concatenated.WriteString(value)
	}
	concatenated.WriteString(strconv.FormatInt(timestamp, 10))
	concatenated.WriteString(secret)

	sum := sha256.Sum256([]byte(concatenated.String()))
	return hex.EncodeToString(sum[:]), nil
}

// VerifyChecksum compares in constant time, case insensitive on the hex digits.
func VerifyChecksum(expected string, received string) bool {
	received = strings.ToLower(strings.TrimSpace(received))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}

func lookup(tree map[string]interface{}, path string) (string, error) {
	var current interface{} = tree
	for _, key := range strings.Split(path, ".") {
		node, ok := current.(map[string]interface{})
		if !ok {
			return "", fmt.Errorf("signed property=%s not found", path)
		}
		if current, ok = node[key]; !ok {
			return "", fmt.Errorf("signed property=%s not found", path)
		}
	}
	switch value := current.(type) {
	case string:
		return value, nil
	case json.Number:
		return value.String(), nil
	case bool:
		return strconv.FormatBool(value), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("signed property=%s is not a scalar", path)
	}
}
