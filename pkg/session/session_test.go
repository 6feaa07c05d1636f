package session

import "testing"

func TestNewAndSet(t *testing.T) {
	c := New("", "")
	if c.IsDatabaseSet() || c.IsSchemaSet() {
		t.Fatal("empty context should have nothing set")
	}

	c.SetDatabase("db1")
	if c.CurrentDatabase() != "DB1" || !c.IsDatabaseSet() {
		t.Errorf("database = %q set=%v", c.CurrentDatabase(), c.IsDatabaseSet())
	}

	c.SetSchema("jaffles")
	if c.CurrentSchema() != "JAFFLES" || !c.IsSchemaSet() {
		t.Errorf("schema = %q set=%v", c.CurrentSchema(), c.IsSchemaSet())
	}

	c.ClearSchema()
	if c.IsSchemaSet() {
		t.Error("schema should be unset after ClearSchema")
	}
	if cat, sch := c.SearchPath(); cat != "DB1" || sch != DefaultSchema {
		t.Errorf("search path = %s.%s", cat, sch)
	}
}

func TestSeededNamesAreNotSet(t *testing.T) {
	c := New("db1", "s1")
	if c.CurrentDatabase() != "DB1" || c.CurrentSchema() != "S1" {
		t.Errorf("seeded names = %s.%s", c.CurrentDatabase(), c.CurrentSchema())
	}
	if c.IsDatabaseSet() || c.IsSchemaSet() {
		t.Error("seeded names should not count as set")
	}
	c.MarkDatabaseSet()
	c.MarkSchemaSet()
	if !c.IsDatabaseSet() || !c.IsSchemaSet() {
		t.Error("marked names should count as set")
	}

	empty := New("", "")
	empty.MarkDatabaseSet()
	if empty.IsDatabaseSet() {
		t.Error("an empty name cannot be marked set")
	}
}

func TestQualify(t *testing.T) {
	c := New("", "")
	c.SetDatabase("db1")
	c.SetSchema("s1")
	tests := []struct {
		cat, sch         string
		wantCat, wantSch string
	}{
		{"", "", "DB1", "S1"},
		{"", "OTHER", "DB1", "OTHER"},
		{"DB2", "x", "DB2", "x"},
	}
	for _, tt := range tests {
		cat, sch := c.Qualify(tt.cat, tt.sch)
		if cat != tt.wantCat || sch != tt.wantSch {
			t.Errorf("Qualify(%q, %q) = %s, %s", tt.cat, tt.sch, cat, sch)
		}
	}
}

func TestClone(t *testing.T) {
	c := New("db1", "")
	cp := c.Clone()
	cp.SetSchema("s2")
	if c.IsSchemaSet() {
		t.Error("clone should not share state")
	}
}
