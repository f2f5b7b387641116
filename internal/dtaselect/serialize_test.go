package dtaselect

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestSerialize_MiniReport(t *testing.T) {
	r := mustParse(t, miniReport)
	got, err := Serialize(r)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if got != miniReport {
		t.Errorf("round trip mismatch\ngot:\n%s\nwant:\n%s", got, miniReport)
	}
}

func TestSerialize_ShortRowsWrittenBack(t *testing.T) {
	in := "Locus\tN\tDescriptive Name\n" +
		"Unique\tFileName\tXCorr\n" +
		"A\t1\n" +
		"*\tf.1.1.2\n"
	r := mustParse(t, in)
	got, err := Serialize(r)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if got != in {
		t.Errorf("got %q, want %q", got, in)
	}
}

func TestSerialize_AfterRemoveGroup(t *testing.T) {
	r := mustParse(t, miniReport)
	if _, _, err := r.RemoveGroup(0); err != nil {
		t.Fatal(err)
	}
	got, err := Serialize(r)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	for _, gone := range []string{"P1\t", "run.10.10.2", "run.11.11.3"} {
		if strings.Contains(got, gone) {
			t.Errorf("output still contains %q", gone)
		}
	}
	if !strings.Contains(got, "P2\t1\tSecond protein\n\tProteins") {
		t.Errorf("P2 should directly precede the trailer:\n%s", got)
	}
}

func TestSerialize_PeptidesFollowTheirGroup(t *testing.T) {
	r := mustParse(t, miniReport)

	// a peptide appended for P2 lands after P2, not after P1's peptides
	row := cloneRow(r.Peptides.Rows[0])
	row.Group = 1
	row.Cells[r.Peptides.Schema.Index(ColLowScan)] = IntValue(99)
	row.Cells[r.Peptides.Schema.Index(ColHighScan)] = IntValue(99)
	if err := r.Peptides.Append(row); err != nil {
		t.Fatal(err)
	}
	// move it to the front of the table; table position inside the peptide
	// table must not matter
	r.Peptides.Rows = append([]Row{r.Peptides.Rows[2]}, r.Peptides.Rows[:2]...)

	got, err := Serialize(r)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	lines := strings.Split(got, "\n")
	want := []string{
		"P1\t2\tFirst protein",
		"*\trun.10.10.2\t3.5\tK.AAA.R",
		"\trun.11.11.3\t2.0\tK.BBB.R",
		"P2\t1\tSecond protein",
		"*\trun.99.99.2\t3.5\tK.AAA.R",
		"\tProteins\tPeptide IDs",
	}
	for i, w := range want {
		if lines[3+i] != w {
			t.Errorf("line %d = %q, want %q", 3+i, lines[3+i], w)
		}
	}
}

func TestSerialize_ConsistencyErrors(t *testing.T) {
	t.Run("orphan peptide group", func(t *testing.T) {
		r := mustParse(t, miniReport)
		r.Peptides.Rows[1].Group = 7
		r.Peptides.Rows[0].Group = 5

		var buf bytes.Buffer
		err := Write(&buf, r)
		var ce *ConsistencyError
		if !errors.As(err, &ce) {
			t.Fatalf("expected *ConsistencyError, got %v", err)
		}
		if ce.Group != 5 {
			t.Errorf("Group = %d, want the smallest orphan 5", ce.Group)
		}
		if buf.Len() != 0 {
			t.Errorf("nothing should be written on error, got %q", buf.String())
		}
	})

	t.Run("message names the kind", func(t *testing.T) {
		r := mustParse(t, miniReport)
		r.Peptides.Rows[0].Group = 3

		_, err := Serialize(r)
		if err == nil || !strings.Contains(err.Error(), "consistency error") {
			t.Errorf("error = %v, want a consistency error", err)
		}
	})
}

func TestSerialize_ProteinAppendedToExistingGroup(t *testing.T) {
	r := mustParse(t, miniReport)
	extra := cloneRow(r.Proteins.Rows[0])
	extra.Cells[r.Proteins.Schema.Index("Locus")] = StringValue("P1b")
	if err := r.Proteins.Append(extra); err != nil {
		t.Fatal(err)
	}

	got, err := Serialize(r)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	lines := strings.Split(got, "\n")
	want := []string{
		"P1\t2\tFirst protein",
		"P1b\t2\tFirst protein",
		"*\trun.10.10.2\t3.5\tK.AAA.R",
		"\trun.11.11.3\t2.0\tK.BBB.R",
		"P2\t1\tSecond protein",
	}
	for i, w := range want {
		if lines[3+i] != w {
			t.Errorf("line %d = %q, want %q", 3+i, lines[3+i], w)
		}
	}

	back := mustParse(t, got)
	if g := groupsOf(back.Proteins); !equalInts(g, []int{0, 0, 1}) {
		t.Errorf("reparsed protein groups = %v, want [0 0 1]", g)
	}
}

func TestSerialize_MissingTable(t *testing.T) {
	r := mustParse(t, miniReport)
	r.Peptides = nil
	_, err := Serialize(r)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FormatError, got %v", err)
	}
}

func TestSerialize_StripsCarriageReturns(t *testing.T) {
	r := mustParse(t, miniReport)
	if err := r.Proteins.Set(0, "Descriptive Name", StringValue("First\r protein")); err != nil {
		t.Fatal(err)
	}
	got, err := Serialize(r)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "P1\t2\tFirst protein\n") {
		t.Errorf("carriage return not stripped:\n%q", got)
	}
}

func TestSerialize_EditedCellsAreWritten(t *testing.T) {
	r := mustParse(t, miniReport)
	if err := r.Peptides.Set(0, ColCharge, IntValue(4)); err != nil {
		t.Fatal(err)
	}
	if err := r.Peptides.Set(1, "XCorr", FloatValue(7)); err != nil {
		t.Fatal(err)
	}
	got, err := Serialize(r)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "*\trun.10.10.4\t3.5\tK.AAA.R\n") {
		t.Errorf("charge edit missing:\n%s", got)
	}
	if !strings.Contains(got, "\trun.11.11.3\t7.0\tK.BBB.R\n") {
		t.Errorf("score edit missing:\n%s", got)
	}
}
