package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/filterframes/internal/dtaselect"
)

// syntheticReport builds a report with the given number of proteins, each
// followed by peptides peptide rows.
func syntheticReport(proteins, peptides int) string {
	var b strings.Builder
	b.WriteString("DTASelect v2.1.13\n")
	b.WriteString("Locus\tSequence Count\tSpectrum Count\tSequence Coverage\tDescriptive Name\n")
	b.WriteString("Unique\tFileName\tXCorr\tDeltCN\tConf%\tM+H+\tSequence\n")
	scan := 1000
	for p := range proteins {
		fmt.Fprintf(&b, "sp|P%05d|PROT_%d\t%d\t%d\t%.1f%%\tSynthetic protein %d\n", p, p, peptides, peptides*2, 12.5, p)
		for range peptides {
			fmt.Fprintf(&b, "*\trun_%02d.%d.%d.%d\t%.4f\t%.4f\t%.1f\t%.5f\tK.PEPTIDE%d.R\n",
				p%12, scan, scan, 2+scan%2, 2.5+float64(scan%7)/10, 0.31, 99.9, 1234.56789, scan)
			scan++
		}
	}
	b.WriteString("\tProteins\tPeptide IDs\tSpectra\n")
	fmt.Fprintf(&b, "Unfiltered\t%d\t%d\t%d\n", proteins, proteins*peptides, proteins*peptides*2)
	fmt.Fprintf(&b, "Filtered\t%d\t%d\t%d\n", proteins, proteins*peptides, proteins*peptides*2)
	return b.String()
}

func loadFixture(b *testing.B) string {
	b.Helper()
	data, err := os.ReadFile(fixturePath)
	if err != nil {
		b.Fatal(err)
	}
	return string(data)
}

// ============================================================================
// Parse and Serialize Benchmarks
// ============================================================================

// BenchmarkParse_Fixture parses the bundled DTASelect 2.1.13 report.
func BenchmarkParse_Fixture(b *testing.B) {
	text := loadFixture(b)
	b.SetBytes(int64(len(text)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dtaselect.ParseString(text); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkParse_Large parses a report with 20,000 peptide rows.
func BenchmarkParse_Large(b *testing.B) {
	text := syntheticReport(2000, 10)
	b.SetBytes(int64(len(text)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dtaselect.ParseString(text); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSerialize_Large measures the merge and rendering of a parsed report.
func BenchmarkSerialize_Large(b *testing.B) {
	rep, err := dtaselect.ParseString(syntheticReport(2000, 10))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := dtaselect.Write(io.Discard, rep); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Service Benchmarks
// ============================================================================

// BenchmarkIngest stores the fixture in a memory store.
func BenchmarkIngest(b *testing.B) {
	text := loadFixture(b)
	svc := NewService(NewMemoryStore(), testConfig())
	ctx := context.Background()
	b.SetBytes(int64(len(text)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Ingest(ctx, "DTASelect-filter.txt", strings.NewReader(text)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkIngest_Parallel runs ingests from several goroutines, so the
// upload limiter is part of the measurement.
func BenchmarkIngest_Parallel(b *testing.B) {
	text := syntheticReport(200, 5)
	cfg := testConfig()
	cfg.Upload.MaxWaitTime = time.Minute
	svc := NewService(NewMemoryStore(), cfg)
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := svc.Ingest(ctx, "DTASelect-filter.txt", strings.NewReader(text)); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

// BenchmarkConvert normalizes a large report without storing it.
func BenchmarkConvert(b *testing.B) {
	text := syntheticReport(2000, 10)
	svc := NewService(NewMemoryStore(), testConfig())
	ctx := context.Background()
	b.SetBytes(int64(len(text)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Convert(ctx, strings.NewReader(text), io.Discard); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSharedSpectra scans the peptide table for spectra claimed by
// several groups.
func BenchmarkSharedSpectra(b *testing.B) {
	rep, err := dtaselect.ParseString(syntheticReport(2000, 10))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sharedSpectra(rep.Peptides)
	}
}

// ============================================================================
// Streaming and Encoding Benchmarks
// ============================================================================

// BenchmarkWrapForStreaming reads a report through the BOM-stripping,
// counting wrapper.
func BenchmarkWrapForStreaming(b *testing.B) {
	data := []byte("\ufeff" + syntheticReport(500, 10))
	b.SetBytes(int64(len(data)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sr := WrapForStreaming(bytes.NewReader(data), 0)
		if _, err := io.Copy(io.Discard, sr); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkEncodeCells encodes every peptide row the way the Postgres store
// does before COPY.
func BenchmarkEncodeCells(b *testing.B) {
	rep, err := dtaselect.ParseString(syntheticReport(100, 10))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, row := range rep.Peptides.Rows {
			if _, err := EncodeCells(row); err != nil {
				b.Fatal(err)
			}
		}
	}
}

// BenchmarkDecodeCells is the load side of BenchmarkEncodeCells.
func BenchmarkDecodeCells(b *testing.B) {
	rep, err := dtaselect.ParseString(syntheticReport(100, 10))
	if err != nil {
		b.Fatal(err)
	}
	fields := rep.Peptides.Schema.Fields
	encoded := make([][]byte, len(rep.Peptides.Rows))
	for i, row := range rep.Peptides.Rows {
		if encoded[i], err = EncodeCells(row); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, data := range encoded {
			if _, err := DecodeCells(fields, data); err != nil {
				b.Fatal(err)
			}
		}
	}
}
