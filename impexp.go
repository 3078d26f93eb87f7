package tradeledger

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// this file contains functions to read the tabular trade lists produced by
// spreadsheets and brokers. The format is loose on purpose: anything a human
// could type is accepted, and canonicalized before normalization.

// ImportRow is one data row of an import file.
type ImportRow struct {
	Line int // 1-based line in the source
	Raw  RawTrade
}

// importColumns is the positional layout of files without a header row.
var importColumns = []string{"market", "symbol", "side", "date", "time", "qty", "price", "fee"}

// headerNames maps the known header names, lowercased, to the RawTrade field
// they fill.
var headerNames = map[string]string{
	"market": "market", "시장": "market",
	"symbol": "symbol", "ticker": "symbol", "종목": "symbol", "종목코드": "symbol",
	"side": "side", "type": "side", "구분": "side", "매매구분": "side",
	"date": "date", "날짜": "date", "일자": "date",
	"time": "time", "시간": "time",
	"qty": "qty", "quantity": "qty", "수량": "qty",
	"price": "price", "단가": "price", "가격": "price",
	"fee": "fee", "commission": "fee", "수수료": "fee",
}

// ParseImport reads a delimited trade list.
//
// The delimiter is the most frequent of ',', ';' and '\t' in the first line,
// comma when none is found. Fields follow the CSV quoting rules. The first
// line is a header when at least two of its cells are known column names, in
// English or Korean; otherwise columns are, in order: market, symbol, side,
// date, time, qty, price, fee. Blank lines and a leading UTF-8 BOM are
// ignored.
//
// ParseImport only fails on a broken file. Values are checked by
// Reconciler.Reconcile, row by row.
func ParseImport(r io.Reader) ([]ImportRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read import file: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = detectDelimiter(data)
	cr.FieldsPerRecord = -1
	// leading tabs would be trimmed as spaces, merging empty cells
	cr.TrimLeadingSpace = cr.Comma != '\t'

	columns := importColumns
	var rows []ImportRow
	first := true
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot parse import file: %w", err)
		}
		if blank(record) {
			continue
		}
		line, _ := cr.FieldPos(0)
		if first {
			first = false
			if header, ok := parseHeader(record); ok {
				columns = header
				continue
			}
		}
		rows = append(rows, ImportRow{Line: line, Raw: rawFromRecord(columns, record)})
	}
	return rows, nil
}

// detectDelimiter counts candidate delimiters in the first non blank line.
func detectDelimiter(data []byte) rune {
	var line string
	for l := range strings.Lines(string(data)) {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}
	best, count := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := strings.Count(line, string(d)); n > count {
			best, count = d, n
		}
	}
	return best
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseHeader returns the field of each column if record looks like a header.
// Unknown columns map to "".
func parseHeader(record []string) ([]string, bool) {
	columns := make([]string, len(record))
	known := 0
	for i, cell := range record {
		if field, ok := headerNames[strings.ToLower(strings.TrimSpace(cell))]; ok {
			columns[i] = field
			known++
		}
	}
	return columns, known >= 2
}

func rawFromRecord(columns, record []string) RawTrade {
	var raw RawTrade
	for i, cell := range record {
		if i >= len(columns) {
			break
		}
		cell = strings.TrimSpace(cell)
		switch columns[i] {
		case "market":
			raw.Market = cell
		case "symbol":
			raw.Symbol = cell
		case "side":
			raw.Side = cell
		case "date":
			raw.Date = cell
		case "time":
			raw.Time = cell
		case "qty":
			raw.Quantity = cell
		case "price":
			raw.Price = cell
		case "fee":
			raw.Fee = cell
		}
	}
	return raw
}

var (
	lenientDateRE    = regexp.MustCompile(`^(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})\.?$`)
	compactDateRE    = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
	lenientTimeRE    = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	compactTimeRE    = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2})?$`)
	lenientSideNames = map[string]Side{
		"B": Buy, "BUY": Buy, "BOUGHT": Buy, "매수": Buy,
		"S": Sell, "SELL": Sell, "SOLD": Sell, "매도": Sell,
	}
)

// lenientDate rewrites "2024/1/5", "2024.01.05" or "20240105" as
// "2024-01-05". Unrecognized values are returned unchanged, for the
// Normalizer to reject.
func lenientDate(s string) string {
	if m := lenientDateRE.FindStringSubmatch(s); m != nil {
		return m[1] + "-" + pad2(m[2]) + "-" + pad2(m[3])
	}
	if m := compactDateRE.FindStringSubmatch(s); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3]
	}
	return s
}

// lenientTime rewrites "9:05", "0905" or "090510" as "HH:MM:SS". A blank
// time is def.
func lenientTime(s, def string) string {
	if s == "" {
		return def
	}
	if m := lenientTimeRE.FindStringSubmatch(s); m != nil {
		sec := m[3]
		if sec == "" {
			sec = "00"
		}
		return pad2(m[1]) + ":" + m[2] + ":" + sec
	}
	if m := compactTimeRE.FindStringSubmatch(s); m != nil {
		sec := m[3]
		if sec == "" {
			sec = "00"
		}
		return m[1] + ":" + m[2] + ":" + sec
	}
	return s
}

// lenientSide maps letter codes and words to BUY or SELL. Unrecognized values
// are returned unchanged.
func lenientSide(s string) string {
	if side, ok := lenientSideNames[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return string(side)
	}
	return s
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// canonicalize applies the lenient rules to the date, time and side of raw.
func canonicalize(raw RawTrade, defaultTime string) RawTrade {
	date, clock := strings.TrimSpace(raw.Date), strings.TrimSpace(raw.Time)
	if clock == "" {
		if i := strings.IndexAny(date, " T"); i > 0 {
			date, clock = date[:i], strings.TrimSpace(date[i+1:])
		}
	}
	raw.Date = lenientDate(date)
	raw.Time = lenientTime(clock, defaultTime)
	raw.Side = lenientSide(raw.Side)
	return raw
}
