package model

import "strings"

// ForeignKey is a reference derived from naming conventions. The foreign table
// is only a name; it is resolved through a Schema when accessed.
type ForeignKey struct {
	Table          TableRef
	Columns        []string
	ForeignTable   TableRef
	ForeignColumns []string

	// alternate is the other reading of an ambiguous satellite key
	// (a "_l_key" column could also name a hub "<base>_l_h").
	alternate *TableRef
}

// Alternate returns the competing foreign table name for an ambiguous key.
func (fk ForeignKey) Alternate() (TableRef, bool) {
	if fk.alternate == nil {
		return TableRef{}, false
	}
	return *fk.alternate, true
}

func (fk ForeignKey) String() string {
	return fk.Table.FullName() + "(" + strings.Join(fk.Columns, ", ") + ") -> " +
		fk.ForeignTable.FullName() + "(" + strings.Join(fk.ForeignColumns, ", ") + ")"
}
