package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Output управляет форматированием вывода.
type Output struct {
	jsonMode bool
	w        io.Writer // stdout для отчёта
	errW     io.Writer // stderr для сообщений
}

// NewOutput создаёт Output. Если jsonMode=true, отчёт выводится в JSON.
func NewOutput(w, errW io.Writer, jsonMode bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		w:        w,
		errW:     errW,
	}
}

// Print выводит Summary: текст или JSON в зависимости от режима.
// extra добавляется к JSON-объекту верхнего уровня (например, run_id).
func (o *Output) Print(s Summary, extra map[string]any) error {
	if !o.jsonMode {
		_, err := io.WriteString(o.w, s.Text())
		return err
	}

	doc := map[string]any{"summary": s}
	for k, v := range extra {
		doc[k] = v
	}
	return o.JSON(doc)
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}

// Table выводит таблицу или jsonData в JSON-режиме.
func (o *Output) Table(headers []string, rows [][]string, jsonData any) error {
	if o.jsonMode {
		return o.JSON(jsonData)
	}

	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
