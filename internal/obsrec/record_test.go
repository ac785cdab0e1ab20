package obsrec

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "obs.dat")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_StrideIndexing(t *testing.T) {
	// 7 rows sampled every 0.5, stride 2: step n lives at row 2n.
	content := `# synthetic record
0.0  1.0 2.0 3.0  0
0.5  1.1 2.1 3.1  0
1.0  1.2 2.2 3.2  1
1.5  1.3 2.3 3.3  1
2.0  1.4 2.4 3.4  2

2.5  1.5 2.5 3.5  2
3.0  1.6 2.6 3.6  3
`
	rec, err := Load(writeFile(t, content), 2)
	if err != nil {
		t.Fatal(err)
	}

	if rec.Len() != 7 {
		t.Errorf("Len() = %d, want 7", rec.Len())
	}
	if rec.Width() != 3 {
		t.Errorf("Width() = %d, want 3", rec.Width())
	}
	if rec.Steps() != 3 {
		t.Errorf("Steps() = %d, want 3", rec.Steps())
	}

	got, err := rec.At(2)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1.4, 2.4, 3.4}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("At(2)[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	ts, err := rec.TimeAt(2)
	if err != nil {
		t.Fatal(err)
	}
	if ts != 2.0 {
		t.Errorf("TimeAt(2) = %v, want 2.0", ts)
	}
}

func TestLoad_DefaultStride(t *testing.T) {
	content := "0.0 1.0 2.0 3.0 0\n"
	rec, err := Load(writeFile(t, content), 0)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Stride() != DefaultStride {
		t.Errorf("Stride() = %d, want %d", rec.Stride(), DefaultStride)
	}
}

func TestRecord_At_OutOfRange(t *testing.T) {
	content := "0.0 1.0 2.0 3.0 0\n1.0 1.1 2.1 3.1 1\n"
	rec, err := Load(writeFile(t, content), 10)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := rec.At(1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("At(1) = %v, want ErrOutOfRange", err)
	}
	if _, err := rec.At(-1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("At(-1) = %v, want ErrOutOfRange", err)
	}
}

func TestRecord_At_ReturnsCopy(t *testing.T) {
	content := "0.0 1.0 2.0 3.0 0\n"
	rec, err := Load(writeFile(t, content), 1)
	if err != nil {
		t.Fatal(err)
	}

	a, _ := rec.At(0)
	a[0] = 99
	b, _ := rec.At(0)
	if b[0] != 1.0 {
		t.Error("At exposes internal storage")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", "# only comments\n\n"},
		{"too few columns", "0.0 1.0\n"},
		{"ragged", "0.0 1.0 2.0 3.0 0\n1.0 1.1 2.1 1\n"},
		{"not a number", "0.0 one 2.0 3.0 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tt.content), 1); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	rows := []Row{
		{Time: 0, Values: []float64{-2.39, -3.46, 14.98}, Tag: 0},
		{Time: 0.1, Values: []float64{-2.51, -3.60, 14.52}, Tag: 0},
		{Time: 0.2, Values: []float64{-2.66, -3.78, 14.11}, Tag: 0},
	}
	path := filepath.Join(t.TempDir(), "obs.dat")

	if err := Write(path, rows); err != nil {
		t.Fatal(err)
	}

	rec, err := Load(path, 1)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Len() != len(rows) {
		t.Fatalf("Len() = %d, want %d", rec.Len(), len(rows))
	}

	for step, row := range rows {
		got, err := rec.At(step)
		if err != nil {
			t.Fatal(err)
		}
		for i, want := range row.Values {
			if math.Abs(got[i]-want) > 1e-7 {
				t.Errorf("step %d value %d = %v, want %v", step, i, got[i], want)
			}
		}
	}
}
