package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleLinkSatellite(t *testing.T, a, b string) *Table {
	return typed(t, "example_"+a+"_"+b+"_l_s", cols(
		"example_"+a+"_"+b+"_l_key", "text",
		"load_dts", "numeric",
		"effective_ts", "numeric",
		"rec_src", "text",
	))
}

func TestSchema_LinkForeignKeyLookup(t *testing.T) {
	hub1, hub2 := exampleHub(t, "1"), exampleHub(t, "2")
	link := exampleLink(t, "1", "2")
	s, err := NewSchema("dv", []*Table{hub1, hub2, link})
	require.NoError(t, err)

	fks := link.ForeignKeys()
	require.Len(t, fks, 2)

	ft, err := s.ForeignTable(fks[0])
	require.NoError(t, err)
	assert.Same(t, hub1, ft)
	fc, err := s.ForeignColumns(fks[0])
	require.NoError(t, err)
	assert.Equal(t, []*Column{hub1.Hub.Key}, fc)

	ft, err = s.ForeignTable(fks[1])
	require.NoError(t, err)
	assert.Same(t, hub2, ft)
}

func TestSchema_SatelliteForeignKeyLookup(t *testing.T) {
	hub := exampleHub(t, "1")
	sat := exampleSatellite(t, "1")
	link := exampleLink(t, "1", "2")
	lsat := exampleLinkSatellite(t, "1", "2")
	s, err := NewSchema("dv", []*Table{hub, sat, link, lsat})
	require.NoError(t, err)

	ft, err := s.ForeignTable(sat.ForeignKeys()[0])
	require.NoError(t, err)
	assert.Same(t, hub, ft)

	ft, err = s.ForeignTable(lsat.ForeignKeys()[0])
	require.NoError(t, err)
	assert.Same(t, link, ft)
	fc, err := s.ForeignColumns(lsat.ForeignKeys()[0])
	require.NoError(t, err)
	assert.Equal(t, []*Column{link.Link.RootKey}, fc)
}

func TestSchema_References(t *testing.T) {
	hub1, hub2 := exampleHub(t, "1"), exampleHub(t, "2")
	sat1 := exampleSatellite(t, "1")
	link := exampleLink(t, "1", "2")
	lsat := exampleLinkSatellite(t, "1", "2")
	s, err := NewSchema("dv", []*Table{hub1, sat1, link, hub2, lsat})
	require.NoError(t, err)

	t.Run("hub", func(t *testing.T) {
		referred, err := s.ReferredTables(hub1)
		require.NoError(t, err)
		assert.Empty(t, referred)
		assert.Equal(t, []*Table{sat1, link}, s.ReferringTables(hub1))
		assert.Equal(t, []*Table{link}, s.RelatedLinks(hub1))
		assert.Equal(t, []*Table{sat1}, s.RelatedSatellites(hub1))
	})

	t.Run("link", func(t *testing.T) {
		referred, err := s.ReferredTables(link)
		require.NoError(t, err)
		assert.Equal(t, []*Table{hub1, hub2}, referred)
		assert.Equal(t, []*Table{lsat}, s.ReferringTables(link))

		hubs, err := s.RelatedHubs(link)
		require.NoError(t, err)
		assert.Equal(t, []*Table{hub1, hub2}, hubs)
		assert.Equal(t, []*Table{lsat}, s.RelatedLinkSatellites(link))
	})

	t.Run("satellite", func(t *testing.T) {
		referred, err := s.ReferredTables(sat1)
		require.NoError(t, err)
		assert.Equal(t, []*Table{hub1}, referred)
		assert.Empty(t, s.ReferringTables(sat1))

		hub, err := s.RelatedHub(sat1)
		require.NoError(t, err)
		assert.Same(t, hub1, hub)
	})

	t.Run("link satellite", func(t *testing.T) {
		referred, err := s.ReferredTables(lsat)
		require.NoError(t, err)
		assert.Equal(t, []*Table{link}, referred)

		l, err := s.RelatedLink(lsat)
		require.NoError(t, err)
		assert.Same(t, link, l)

		_, err = s.RelatedHub(lsat)
		assert.Error(t, err)
	})
}

func TestSchema_IndicesAreMutualInverses(t *testing.T) {
	hub1, hub2 := exampleHub(t, "1"), exampleHub(t, "2")
	link := exampleLink(t, "1", "2")
	s, err := NewSchema("dv", []*Table{hub1, hub2, link})
	require.NoError(t, err)

	for _, tbl := range s.Tables() {
		referred, err := s.ReferredTables(tbl)
		require.NoError(t, err)
		for _, r := range referred {
			assert.Contains(t, s.ReferringTables(r), tbl, "%s refers to %s", tbl.Name, r.Name)
		}
		for _, r := range s.ReferringTables(tbl) {
			back, err := s.ReferredTables(r)
			require.NoError(t, err)
			assert.Contains(t, back, tbl)
		}
	}
}

func TestSchema_MissingReferencedTable(t *testing.T) {
	link := exampleLink(t, "1", "2")
	hub1 := exampleHub(t, "1")

	// Construction must not dereference foreign names.
	s, err := NewSchema("dv", []*Table{link, hub1})
	require.NoError(t, err)

	_, err = s.ForeignTable(link.ForeignKeys()[1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "referenced table not found")

	_, err = s.ReferredTables(link)
	assert.Error(t, err)
	_, err = s.RelatedHubs(link)
	assert.Error(t, err)
}

func TestSchema_DuplicateTable(t *testing.T) {
	_, err := NewSchema("dv", []*Table{exampleHub(t, "1"), exampleHub(t, "1")})
	require.Error(t, err)

	var me *MetadataError
	assert.True(t, errors.As(err, &me))
}

func TestSchema_AmbiguousSatelliteKey(t *testing.T) {
	link := typed(t, "example_l", cols("example_l_key", "text", "a_key", "text", "load_dts", "numeric", "rec_src", "text"))
	hub := typed(t, "example_l_h", cols("example_l_key", "text", "id", "text", "load_dts", "numeric", "rec_src", "text"))
	lsat := exampleLinkSatellite(t, "x", "y")
	sat := typed(t, "example_l_s", cols("example_l_key", "text", "load_dts", "numeric", "rec_src", "text"))

	s, err := NewSchema("dv", []*Table{link, hub, lsat, sat})
	require.NoError(t, err)

	_, err = s.ForeignTable(sat.ForeignKeys()[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
}
