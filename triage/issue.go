package triage

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/EricRahm/bz-triage/errors"
)

// Export column names, as emitted by buglist.cgi with human=1
const (
	ColumnBugID      = "Bug ID"
	ColumnProduct    = "Product"
	ColumnComponent  = "Component"
	ColumnReporter   = "Reporter"
	ColumnAssignee   = "Assignee"
	ColumnStatus     = "Status"
	ColumnResolution = "Resolution"
	ColumnSummary    = "Summary"
	ColumnChanged    = "Changed"
)

// RequiredColumns must all be present in the export header, in any order
var RequiredColumns = []string{
	ColumnBugID, ColumnProduct, ColumnComponent, ColumnReporter, ColumnAssignee,
	ColumnStatus, ColumnResolution, ColumnSummary, ColumnChanged,
}

const utf8BOM = "\uFEFF"

// IssueRecord is one bug from the export
type IssueRecord struct {
	ID         int
	Product    string
	Component  string
	Reporter   string
	Assignee   string
	Status     string
	Resolution string
	Summary    string
	Changed    string // last-changed timestamp, kept as exported
	ShortURL   string
}

// ExpandURL substitutes the bug ID into a URL template containing {id}
func ExpandURL(template string, id int) string {
	return strings.ReplaceAll(template, "{id}", strconv.Itoa(id))
}

// ParseExport reads a Bugzilla CSV export and returns its bugs sorted by ID.
// Equal IDs keep their export order. The first unparseable row fails the
// whole export.
func ParseExport(r io.Reader, shortURLTemplate string) ([]IssueRecord, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewMalformedInputError("export is empty: no header row")
	}
	if err != nil {
		return nil, readError(err, "read export header", errors.ErrMalformedInput)
	}

	columns, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	var issues []IssueRecord
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, readError(err, "read export row", errors.ErrRecordParse)
		}

		line, _ := reader.FieldPos(0)
		issue, err := newIssueRecord(record, columns, line)
		if err != nil {
			return nil, err
		}
		issue.ShortURL = ExpandURL(shortURLTemplate, issue.ID)
		issues = append(issues, issue)
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].ID < issues[j].ID
	})
	return issues, nil
}

// readError marks CSV syntax errors with kind. Anything else came from the
// underlying reader, e.g. a connection dropped mid-body, and is a network error.
func readError(err error, action string, kind error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return errors.Mark(errors.Wrap(err, action), kind)
	}
	return errors.MarkNetwork(err, "%s", action)
}

func indexColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		name = strings.TrimSpace(name)
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.WithHint(
			errors.NewMalformedInputError("export header missing required columns: %s", strings.Join(missing, ", ")),
			"the export URL should request ctype=csv&human=1 and include these columns in columnlist",
		)
	}
	return columns, nil
}

func newIssueRecord(record []string, columns map[string]int, line int) (IssueRecord, error) {
	field := func(name string) string {
		return record[columns[name]]
	}

	rawID := strings.TrimSpace(field(ColumnBugID))
	if rawID == "" {
		return IssueRecord{}, errors.NewRecordParseError("line %d: missing bug id", line)
	}
	id, err := strconv.Atoi(rawID)
	if err != nil || id <= 0 {
		return IssueRecord{}, errors.NewRecordParseError("line %d: bug id %q is not a positive number", line, rawID)
	}

	return IssueRecord{
		ID:         id,
		Product:    field(ColumnProduct),
		Component:  field(ColumnComponent),
		Reporter:   field(ColumnReporter),
		Assignee:   field(ColumnAssignee),
		Status:     field(ColumnStatus),
		Resolution: field(ColumnResolution),
		Summary:    field(ColumnSummary),
		Changed:    field(ColumnChanged),
	}, nil
}
