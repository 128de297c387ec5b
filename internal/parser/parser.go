package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	stderrors "errors" // Standard errors package
	"github.com/mcncl/jsontab/internal/errors" // Custom errors package
	"github.com/mcncl/jsontab/internal/models"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Parse reads a whole JSON document from reader. A UTF-8 or UTF-16 byte
// order mark is honoured and stripped; without one the input is UTF-8.
func Parse(reader io.Reader) (models.Document, error) {
	decoded := transform.NewReader(reader, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	data, err := io.ReadAll(decoded)
	if err != nil {
		return models.Document{}, errors.NewInputError("failed to read input", err)
	}
	return ParseBytes(data)
}

// ParseBytes parses UTF-8 JSON text, keeping object members in the order
// they appear.
func ParseBytes(data []byte) (models.Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return models.Document{}, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber() // keep number literals intact

	root, err := decodeValue(dec)
	if err != nil {
		return models.Document{}, parseFailure(data, dec, err)
	}

	// Anything other than whitespace after the first value is an error.
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return models.Document{}, errors.NewParsingError("multiple JSON values found at the root", errors.ErrMultipleJSON)
		}
		return models.Document{}, parseFailure(data, dec, err)
	}

	return models.Document{Root: root}, nil
}

// ParseString parses JSON from a string
func ParseString(jsonString string) (models.Document, error) {
	if strings.TrimSpace(jsonString) == "" {
		return models.Document{}, errors.NewInputError("input string is empty", errors.ErrEmptyInput)
	}
	return Parse(strings.NewReader(jsonString))
}

// ParseFile parses JSON from a file path
func ParseFile(filePath string) (models.Document, error) {
	if strings.TrimSpace(filePath) == "" {
		return models.Document{}, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Document{}, errors.NewInputError(
				fmt.Sprintf("file '%s' not found", filePath),
				errors.ErrFileNotFound,
			)
		}
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("failed to open file '%s'", filePath),
			err,
		)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing file: %v\n", err)
		}
	}()

	stat, err := file.Stat()
	if err != nil {
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("failed to get file stats for '%s'", filePath),
			err,
		)
	}
	if stat.Size() == 0 {
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", filePath),
			errors.ErrFileEmpty,
		)
	}

	doc, err := Parse(file)
	if err != nil {
		return models.Document{}, err
	}
	doc.Source = filepath.Base(filePath)
	return doc, nil
}

// errTruncated marks a document that ends inside an array or object.
var errTruncated = stderrors.New("unexpected end of JSON input")

// decodeValue reads one value from the token stream. encoding/json maps
// objects into Go maps, which lose member order, so containers are walked
// token by token instead.
func decodeValue(dec *json.Decoder) (models.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return models.Value{}, err
	}

	switch t := tok.(type) {
	case nil:
		return models.NullValue(), nil
	case bool:
		return models.BoolValue(t), nil
	case json.Number:
		return models.NumberValue(t.String()), nil
	case string:
		return models.StringValue(t), nil
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
	}
	return models.Value{}, fmt.Errorf("unexpected token %v", tok)
}

func decodeObject(dec *json.Decoder) (models.Value, error) {
	var members []models.Member
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return models.Value{}, truncated(err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return models.Value{}, fmt.Errorf("object key must be a string, got %v", keyTok)
		}
		value, err := decodeValue(dec)
		if err != nil {
			return models.Value{}, truncated(err)
		}
		members = append(members, models.Member{Key: key, Value: value})
	}
	if err := closeDelim(dec, '}'); err != nil {
		return models.Value{}, err
	}
	return models.ObjectValue(members...), nil
}

func decodeArray(dec *json.Decoder) (models.Value, error) {
	items := []models.Value{}
	for dec.More() {
		item, err := decodeValue(dec)
		if err != nil {
			return models.Value{}, truncated(err)
		}
		items = append(items, item)
	}
	if err := closeDelim(dec, ']'); err != nil {
		return models.Value{}, err
	}
	return models.ArrayValue(items...), nil
}

func closeDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return truncated(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func truncated(err error) error {
	if err == io.EOF {
		return errTruncated
	}
	return err
}

// parseFailure converts a decoding error into a parsing AppError carrying
// the line and column of the failure.
func parseFailure(data []byte, dec *json.Decoder, err error) error {
	var syntaxError *json.SyntaxError
	switch {
	case stderrors.As(err, &syntaxError):
		offset, msg := syntaxPosition(data, syntaxError)
		perr := errors.NewParseError(data, offset, msg)
		return errors.NewParsingError(fmt.Sprintf("JSON syntax error at line %d, column %d", perr.Line, perr.Column), perr)
	case stderrors.Is(err, errTruncated), stderrors.Is(err, io.ErrUnexpectedEOF):
		perr := errors.NewParseError(data, int64(len(data)), errTruncated.Error())
		return errors.NewParsingError("unexpected end of JSON input", perr)
	default:
		perr := errors.NewParseError(data, dec.InputOffset(), err.Error())
		return errors.NewParsingError("failed to decode JSON", perr)
	}
}

// syntaxPosition returns the offset of the offending byte counted from the
// start of data. The decoder reports errors found inside a literal relative
// to that literal, so the input is rescanned as a whole.
func syntaxPosition(data []byte, decoded *json.SyntaxError) (int64, string) {
	var rescanned *json.SyntaxError
	if err := json.Unmarshal(data, new(json.RawMessage)); !stderrors.As(err, &rescanned) {
		return decoded.Offset, decoded.Error()
	}
	// The scanner counts the offending byte itself, except at end of input.
	offset := rescanned.Offset
	if offset > 0 && rescanned.Error() != errTruncated.Error() {
		offset--
	}
	return offset, rescanned.Error()
}
