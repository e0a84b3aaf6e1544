package model

import (
	"strings"
)

// Kind is the Data Vault role of a table, chosen by name suffix.
type Kind int

// Kind constants.
const (
	KindTable Kind = iota // untyped passthrough
	KindHub
	KindLink
	KindSatellite
	KindVersionPointer
)

// Name suffixes that select a Kind.
const (
	HubSuffix            = "_h"
	LinkSuffix           = "_l"
	SatelliteSuffix      = "_s"
	VersionPointerSuffix = "_vp"

	KeySuffix     = "_key"
	LinkKeySuffix = LinkSuffix + KeySuffix
	LoadDtsSuffix = "_" + LoadDtsColumn
)

func (k Kind) String() string {
	switch k {
	case KindHub:
		return "hub"
	case KindLink:
		return "link"
	case KindSatellite:
		return "satellite"
	case KindVersionPointer:
		return "version_pointer"
	default:
		return "table"
	}
}

// Suffix returns the name suffix selecting the kind, empty for KindTable.
func (k Kind) Suffix() string {
	switch k {
	case KindHub:
		return HubSuffix
	case KindLink:
		return LinkSuffix
	case KindSatellite:
		return SatelliteSuffix
	case KindVersionPointer:
		return VersionPointerSuffix
	default:
		return ""
	}
}

// IsTyped reports whether the kind is one of the Data Vault kinds.
func (k Kind) IsTyped() bool { return k != KindTable }

// KindOf returns the kind selected by the trailing suffix of name.
func KindOf(name string) Kind {
	switch {
	case strings.HasSuffix(name, HubSuffix):
		return KindHub
	case strings.HasSuffix(name, LinkSuffix):
		return KindLink
	case strings.HasSuffix(name, SatelliteSuffix):
		return KindSatellite
	case strings.HasSuffix(name, VersionPointerSuffix):
		return KindVersionPointer
	default:
		return KindTable
	}
}

// HubRoles are the derived columns of a hub.
type HubRoles struct {
	Key          *Column
	BusinessKeys []*Column
}

// LinkRoles are the derived columns of a link.
type LinkRoles struct {
	RootKey *Column
	Keys    []*Column // every _key column except the root key
}

// SatelliteRoles are the derived columns of a satellite. Key is nil when the
// satellite has zero or several _key columns.
type SatelliteRoles struct {
	Key        *Column
	Attributes []*Column
}

// VersionPointerRoles are the derived columns of a version pointer.
type VersionPointerRoles struct {
	MetricsKey     *Column
	ContextKey     *Column
	ContextLoadDts *Column
}

// Classify returns a copy of t typed by its name suffix with role columns
// derived by naming convention. The input table is not modified.
func Classify(t *Table) *Table {
	typed := *t
	typed.Hub, typed.Link, typed.Satellite, typed.VersionPointer = nil, nil, nil, nil
	typed.Warnings = nil
	typed.Kind = KindOf(t.Name)

	switch typed.Kind {
	case KindHub:
		keyName := strings.ToLower(strings.TrimSuffix(t.Name, HubSuffix) + KeySuffix)
		key, _ := t.Column(keyName)
		typed.Hub = &HubRoles{
			Key:          key,
			BusinessKeys: t.columnsExcept(keyName, LoadDtsColumn, RecSrcColumn, BatchIDColumn),
		}

	case KindLink:
		rootName := strings.ToLower(t.Name + KeySuffix)
		root, _ := t.Column(rootName)
		var keys []*Column
		for _, c := range t.columnsWithSuffix(KeySuffix) {
			if c.Name != rootName {
				keys = append(keys, c)
			}
		}
		typed.Link = &LinkRoles{RootKey: root, Keys: keys}

	case KindSatellite:
		roles := &SatelliteRoles{}
		candidates := t.columnsWithSuffix(KeySuffix)
		switch len(candidates) {
		case 1:
			roles.Key = candidates[0]
			roles.Attributes = t.columnsExcept(roles.Key.Name, LoadDtsColumn, RecSrcColumn, BatchIDColumn)
		case 0:
			typed.Warnings = append(typed.Warnings,
				NewMetadataWarningf(t.FullName(), "satellite has no %s column", KeySuffix))
			roles.Attributes = t.columnsExcept(LoadDtsColumn, RecSrcColumn, BatchIDColumn)
		default:
			typed.Warnings = append(typed.Warnings,
				NewMetadataWarningf(t.FullName(), "satellite has %d %s columns %v, expected one",
					len(candidates), KeySuffix, ColumnNames(candidates)))
			roles.Attributes = t.columnsExcept(LoadDtsColumn, RecSrcColumn, BatchIDColumn)
		}
		typed.Satellite = roles

	case KindVersionPointer:
		roles := &VersionPointerRoles{}
		keys := t.columnsWithSuffix(KeySuffix)
		if len(keys) > 0 {
			roles.MetricsKey = keys[0]
		}
		if len(keys) > 1 {
			roles.ContextKey = keys[1]
		}
		if dts := t.columnsWithSuffix(LoadDtsSuffix); len(dts) > 0 {
			roles.ContextLoadDts = dts[0]
		}
		typed.VersionPointer = roles
	}

	return &typed
}

// role is a named requirement checked by Table.Check.
type role struct {
	name    string
	present bool
}

func (t *Table) requiredRoles() []role {
	switch t.Kind {
	case KindHub:
		return []role{
			{"key", t.Hub != nil && t.Hub.Key != nil},
			{"business_keys", t.Hub != nil && len(t.Hub.BusinessKeys) > 0},
			{LoadDtsColumn, t.LoadDts() != nil},
			{RecSrcColumn, t.RecSrc() != nil},
		}
	case KindLink:
		return []role{
			{"root_key", t.Link != nil && t.Link.RootKey != nil},
			{LoadDtsColumn, t.LoadDts() != nil},
			{RecSrcColumn, t.RecSrc() != nil},
		}
	case KindSatellite:
		// The key is soft: a missing key is a warning from Classify.
		return []role{
			{LoadDtsColumn, t.LoadDts() != nil},
			{RecSrcColumn, t.RecSrc() != nil},
		}
	case KindVersionPointer:
		vp := t.VersionPointer
		return []role{
			{"metrics_key", vp != nil && vp.MetricsKey != nil},
			{"context_key", vp != nil && vp.ContextKey != nil},
			{"context_load_dts", vp != nil && vp.ContextLoadDts != nil},
			{LoadDtsColumn, t.LoadDts() != nil},
		}
	default:
		return nil
	}
}

// Check validates that every role required by the table's kind is present.
// Untyped tables always pass.
func (t *Table) Check() error {
	for _, r := range t.requiredRoles() {
		if !r.present {
			return NewMetadataErrorf(t.FullName(), "%s is missing required column or role %q", t.Kind, r.name)
		}
	}
	return nil
}

// PK returns the primary key columns derived for the table's kind.
func (t *Table) PK() []*Column {
	switch t.Kind {
	case KindHub:
		if t.Hub.Key != nil {
			return []*Column{t.Hub.Key}
		}
	case KindLink:
		if t.Link.RootKey != nil {
			return []*Column{t.Link.RootKey}
		}
	case KindSatellite:
		if t.Satellite.Key != nil && t.LoadDts() != nil {
			return []*Column{t.Satellite.Key, t.LoadDts()}
		}
	case KindVersionPointer:
		if t.VersionPointer.MetricsKey != nil && t.LoadDts() != nil {
			return []*Column{t.VersionPointer.MetricsKey, t.LoadDts()}
		}
	}
	return nil
}

// UK returns the unique key columns. Only hubs have one: their business keys.
func (t *Table) UK() []*Column {
	if t.Kind == KindHub {
		return t.Hub.BusinessKeys
	}
	return nil
}

// ForeignKeys returns the foreign keys implied by the naming convention.
func (t *Table) ForeignKeys() []ForeignKey {
	switch t.Kind {
	case KindLink:
		fks := make([]ForeignKey, 0, len(t.Link.Keys))
		for _, k := range t.Link.Keys {
			hub := strings.TrimSuffix(k.Name, KeySuffix) + HubSuffix
			fks = append(fks, ForeignKey{
				Table:          t.Ref(),
				Columns:        []string{k.Name},
				ForeignTable:   TableRef{Schema: t.Schema, Name: hub},
				ForeignColumns: []string{k.Name},
			})
		}
		return fks

	case KindSatellite:
		key := t.Satellite.Key
		if key == nil {
			return nil
		}
		base := strings.TrimSuffix(key.Name, KeySuffix)
		fk := ForeignKey{
			Table:          t.Ref(),
			Columns:        []string{key.Name},
			ForeignColumns: []string{key.Name},
		}
		if strings.HasSuffix(key.Name, LinkKeySuffix) {
			fk.ForeignTable = TableRef{Schema: t.Schema, Name: base}
			fk.alternate = &TableRef{Schema: t.Schema, Name: base + HubSuffix}
		} else {
			fk.ForeignTable = TableRef{Schema: t.Schema, Name: base + HubSuffix}
		}
		return []ForeignKey{fk}
	}
	return nil
}
