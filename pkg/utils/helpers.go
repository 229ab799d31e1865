package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSemaphoreLimit is the worker count used when none is configured.
const DefaultSemaphoreLimit = 20

// GetSemaphoreLimit returns the semaphore limit from environment variable or default
func GetSemaphoreLimit() int {
	val := os.Getenv("SEMAPHORE_LIMIT")
	if val == "" {
		return DefaultSemaphoreLimit
	}
	limit, err := strconv.Atoi(val)
	if err != nil || limit <= 0 {
		return DefaultSemaphoreLimit
	}
	return limit
}

// UnmarshalYAML decodes a YAML sequence into a slice of T, skipping items
// that fail to decode. The skipped items are reported in the second return
// value; the error is set only when the document is not a sequence or when
// every item failed.
func UnmarshalYAML[T any](yamlString string) ([]*T, []error, error) {
	var nodes []yaml.Node
	if err := yaml.Unmarshal([]byte(yamlString), &nodes); err != nil {
		return nil, nil, fmt.Errorf("failed to parse YAML structure: %w", err)
	}

	results := make([]*T, 0, len(nodes))
	var skipped []error

	for i, node := range nodes {
		var item T
		if err := node.Decode(&item); err != nil {
			skipped = append(skipped, fmt.Errorf("item %d (line %d): %w", i, node.Line, err))
			continue
		}
		results = append(results, &item)
	}

	if len(results) == 0 && len(skipped) > 0 {
		return nil, skipped, fmt.Errorf("failed to unmarshal any items: %w", skipped[0])
	}
	return results, skipped, nil
}

// UnmarshalCSV decodes CSV with a header row into a slice of T. Columns map
// to fields by `csv` tag or lower-cased field name; unknown columns are
// ignored. Rows that fail to parse or map are skipped and reported like
// UnmarshalYAML.
func UnmarshalCSV[T any](csvString string, delimiter rune) ([]*T, []error, error) {
	reader := csv.NewReader(strings.NewReader(csvString))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	structType := reflect.TypeOf(new(T)).Elem()
	fieldMap := make(map[string]int)
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		csvTag := field.Tag.Get("csv")
		if csvTag != "" && csvTag != "-" {
			fieldMap[csvTag] = i
		} else {
			fieldMap[strings.ToLower(field.Name)] = i
		}
	}

	var results []*T
	var skipped []error
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped = append(skipped, err)
			continue
		}

		item, err := mapRowToStruct[T](record, header, fieldMap, structType)
		if err != nil {
			line, _ := reader.FieldPos(0)
			skipped = append(skipped, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		results = append(results, item)
	}

	if len(results) == 0 && len(skipped) > 0 {
		return nil, skipped, fmt.Errorf("failed to unmarshal any rows: %w", skipped[0])
	}
	return results, skipped, nil
}

func mapRowToStruct[T any](record []string, header []string, fieldMap map[string]int, structType reflect.Type) (*T, error) {
	newStructPtr := reflect.New(structType)
	newStruct := newStructPtr.Elem()

	for i, colName := range header {
		if i >= len(record) {
			break
		}
		fieldIdx, ok := fieldMap[colName]
		if !ok {
			fieldIdx, ok = fieldMap[strings.ToLower(colName)]
		}
		if !ok {
			continue
		}
		if err := setField(newStruct.Field(fieldIdx), strings.TrimSpace(record[i])); err != nil {
			return nil, fmt.Errorf("column %s: %w", colName, err)
		}
	}
	return newStructPtr.Interface().(*T), nil
}

// setField converts value and sets it on field.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return errors.New("field cannot be set")
	}

	if field.Kind() == reflect.Ptr {
		if value == "" {
			return nil
		}
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		field = field.Elem()
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if value == "" {
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		if field.OverflowInt(i) {
			return fmt.Errorf("int overflow for value %s", value)
		}
		field.SetInt(i)
	case reflect.Float32, reflect.Float64:
		if value == "" {
			return nil
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		if value == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.ToLower(value))
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}
