package export

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed report_schema.json
var reportSchemaJSON []byte

// ErrSchemaViolation marks exported JSON that does not conform to the
// report schema.
var ErrSchemaViolation = errors.New("export: report violates schema")

// jsonIndent is the indentation for exported JSON.
const jsonIndent = "  "

// WriteJSON validates the report against the embedded schema and writes it
// as indented JSON. Validation before writing keeps a malformed export from
// ever reaching downstream tooling.
func WriteJSON(report *Report, w io.Writer) error {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", jsonIndent)

	err := encoder.Encode(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	err = ValidateReportJSON(buf.Bytes())
	if err != nil {
		return err
	}

	_, err = w.Write(buf.Bytes())
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

// ValidateReportJSON checks serialized report JSON against the embedded
// schema.
func ValidateReportJSON(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(reportSchemaJSON),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("validate report: %w", err)
	}

	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		messages = append(messages, desc.String())
	}

	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(messages, "; "))
}
