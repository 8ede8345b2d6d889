package quiz

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/korjavin/gmatbot/models"
)

const (
	tokenVersion   = "1"
	tokenSeparator = "|"
	tokenFields    = 6
	uuidMarker     = "="
	macSize        = 6

	// MaxCallbackData is Telegram's limit for inline button callback data
	MaxCallbackData = 64
)

// Token carries a served question through the inline button round-trip
type Token struct {
	QuestionID string
	Choice     int
	IssuedAt   time.Time
	Subject    models.Subject
}

// Codec encodes tokens as `1|qid|choice|unix|subject|mac`
type Codec struct {
	key []byte
}

// NewCodec creates a codec whose MAC is keyed with secret
func NewCodec(secret string) *Codec {
	sum := blake2b.Sum256([]byte(secret))
	return &Codec{key: sum[:]}
}

// IsToken reports whether data looks like an answer token rather than another callback
func IsToken(data string) bool {
	return strings.HasPrefix(data, tokenVersion+tokenSeparator)
}

// encodeID packs canonical UUIDs into 23 bytes and keeps other ids as is
func encodeID(id string) (string, error) {
	if id == "" || strings.Contains(id, tokenSeparator) || strings.HasPrefix(id, uuidMarker) {
		return "", fmt.Errorf("question id %q cannot be encoded", id)
	}
	if parsed, err := uuid.Parse(id); err == nil && parsed.String() == id {
		return uuidMarker + base64.RawURLEncoding.EncodeToString(parsed[:]), nil
	}
	return id, nil
}

// CanEncodeID reports whether every answer token of a question with id fits MaxCallbackData
func CanEncodeID(id string) bool {
	qid, err := encodeID(id)
	if err != nil {
		return false
	}
	longest := 0
	for _, s := range models.Subjects {
		longest = max(longest, len(s))
	}
	// version, choice digit, ten-digit unix time, subject, mac and five separators
	size := len(tokenVersion) + len(qid) + 1 + 10 + longest +
		base64.RawURLEncoding.EncodedLen(macSize) + tokenFields - 1
	return size <= MaxCallbackData
}

// Encode serializes t; the result always fits MaxCallbackData
func (c *Codec) Encode(t Token) (string, error) {
	qid, err := encodeID(t.QuestionID)
	if err != nil {
		return "", err
	}

	body := strings.Join([]string{
		tokenVersion,
		qid,
		strconv.Itoa(t.Choice),
		strconv.FormatInt(t.IssuedAt.Unix(), 10),
		string(t.Subject),
	}, tokenSeparator)
	data := body + tokenSeparator + base64.RawURLEncoding.EncodeToString(c.mac(body))
	if len(data) > MaxCallbackData {
		return "", fmt.Errorf("token for question %s is %d bytes, limit %d", t.QuestionID, len(data), MaxCallbackData)
	}
	return data, nil
}

// Decode parses and verifies data produced by Encode.
// Every failure wraps ErrMalformedCallback.
func (c *Codec) Decode(data string) (Token, error) {
	parts := strings.Split(data, tokenSeparator)
	if len(parts) != tokenFields {
		return Token{}, fmt.Errorf("%w: %d fields", ErrMalformedCallback, len(parts))
	}
	if parts[0] != tokenVersion {
		return Token{}, fmt.Errorf("%w: version %q", ErrMalformedCallback, parts[0])
	}

	body := strings.Join(parts[:tokenFields-1], tokenSeparator)
	tag, err := base64.RawURLEncoding.DecodeString(parts[5])
	if err != nil || subtle.ConstantTimeCompare(tag, c.mac(body)) != 1 {
		return Token{}, fmt.Errorf("%w: bad signature", ErrMalformedCallback)
	}

	qid := parts[1]
	if strings.HasPrefix(qid, uuidMarker) {
		raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(qid, uuidMarker))
		if err != nil {
			return Token{}, fmt.Errorf("%w: question id: %v", ErrMalformedCallback, err)
		}
		id, err := uuid.FromBytes(raw)
		if err != nil {
			return Token{}, fmt.Errorf("%w: question id: %v", ErrMalformedCallback, err)
		}
		qid = id.String()
	}
	if qid == "" {
		return Token{}, fmt.Errorf("%w: empty question id", ErrMalformedCallback)
	}

	choice, err := strconv.Atoi(parts[2])
	if err != nil {
		return Token{}, fmt.Errorf("%w: choice: %v", ErrMalformedCallback, err)
	}
	issued, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return Token{}, fmt.Errorf("%w: issued at: %v", ErrMalformedCallback, err)
	}
	subject, ok := models.ParseSubject(parts[4])
	if !ok {
		return Token{}, fmt.Errorf("%w: subject %q", ErrMalformedCallback, parts[4])
	}

	return Token{
		QuestionID: qid,
		Choice:     choice,
		IssuedAt:   time.Unix(issued, 0),
		Subject:    subject,
	}, nil
}

func (c *Codec) mac(body string) []byte {
	h, err := blake2b.New(macSize, c.key)
	if err != nil {
		// key is always 32 bytes and macSize is within range
		panic(err)
	}
	h.Write([]byte(body))
	return h.Sum(nil)
}
