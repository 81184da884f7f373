package core

import (
	"github.com/JonMunkholm/projview/internal/jsonval"
)

// LabelSeparator sits between the id and the title of a label.
const LabelSeparator = " — "

// Labels holds the dropdown labels of a collection in record order and the
// reverse lookup from label to project id.
type Labels struct {
	List []string
	IDs  []string // project id of each label, same positions as List

	byLabel map[string]string
}

// Label formats the dropdown label of a record: "{id} — {title}", or just the
// id when the title is empty.
func Label(rec jsonval.Value) string {
	id, title := RecordID(rec), recordField(rec, FieldTitle)
	if title == "" {
		return id
	}
	return id + LabelSeparator + title
}

// RecordID returns the record's project_id as text, "" when it has none.
func RecordID(rec jsonval.Value) string {
	return recordField(rec, FieldProjectID)
}

func recordField(rec jsonval.Value, key string) string {
	v, _ := rec.Get(key)
	return v.Text()
}

// BuildLabels derives one label per record. Identical labels keep their
// position in List; in the reverse lookup the later record wins.
func BuildLabels(records []jsonval.Value) Labels {
	l := Labels{
		List:    make([]string, len(records)),
		IDs:     make([]string, len(records)),
		byLabel: make(map[string]string, len(records)),
	}
	for i, rec := range records {
		label, id := Label(rec), RecordID(rec)
		l.List[i] = label
		l.IDs[i] = id
		l.byLabel[label] = id
	}
	return l
}

// ID resolves a label to its project id. A label shared by several records
// resolves to the last of them.
func (l Labels) ID(label string) (string, bool) {
	id, ok := l.byLabel[label]
	return id, ok
}

// Len returns the number of labels.
func (l Labels) Len() int { return len(l.List) }
