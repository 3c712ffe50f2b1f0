// Package batch solves a survey file of sphere triples row by row. Each row
// carries three centers and measured ranges; the computed points are written
// back next to the input columns.
package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/chazu/trilat/pkg/geom"
	"github.com/chazu/trilat/pkg/kernel"
	"github.com/chazu/trilat/pkg/monitoring"
	"github.com/chazu/trilat/pkg/solver"
)

// InputColumns are the required header names, three spheres of x, y, z, r.
var InputColumns = []string{
	"x1", "y1", "z1", "r1",
	"x2", "y2", "z2", "r2",
	"x3", "y3", "z3", "r3",
}

// OutputColumns are appended to the header, or overwritten when a processed
// file is fed back in. x_, y_, z_ hold the second point of a two-point result.
var OutputColumns = []string{"result", "x", "y", "z", "x_", "y_", "z_", "error"}

// ResultError marks a row that could not be solved.
const ResultError = "error"

// Options controls Process. The zero value reads and writes comma-separated
// rows and uses the default solver without verification.
type Options struct {
	// Separator is the input field separator. OutputSeparator, when set,
	// replaces it for the written rows.
	Separator       rune
	OutputSeparator rune
	Solver          *solver.Solver

	// Verify checks every computed point against the spheres with Kernel
	// (kernel.Analytic when nil) within VerifyTolerance.
	Verify          bool
	Kernel          kernel.Kernel
	VerifyTolerance float64
}

// RowError is a failure confined to one data row.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *RowError) Unwrap() error { return e.Err }

// Summary counts the outcome of a run.
type Summary struct {
	RunID   string     `json:"run_id"`
	Rows    int        `json:"rows"`
	None    int        `json:"none"`
	One     int        `json:"one"`
	Two     int        `json:"two"`
	Skipped int        `json:"skipped"`
	Failed  int        `json:"failed"`
	Errors  []RowError `json:"-"`
}

// ErrHeader is wrapped by every header problem.
var ErrHeader = errors.New("invalid header")

// SeparatorFor picks the separator from the file extension: tab for .tsv,
// fallback otherwise.
func SeparatorFor(path string, fallback rune) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return fallback
}

type layout struct {
	in    [12]int
	out   [8]int
	cols  int // input header width
	width int // output header width
}

func parseHeader(header []string) (layout, []string, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[name]; dup && name != "" {
			return layout{}, nil, fmt.Errorf("%w: duplicate column %q", ErrHeader, h)
		}
		index[name] = i
	}

	var l layout
	var missing []string
	for i, name := range InputColumns {
		col, ok := index[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		l.in[i] = col
	}
	if len(missing) > 0 {
		return layout{}, nil, fmt.Errorf("%w: missing columns %s", ErrHeader, strings.Join(missing, ", "))
	}

	out := append([]string(nil), header...)
	for i, name := range OutputColumns {
		if col, ok := index[name]; ok {
			l.out[i] = col
			continue
		}
		l.out[i] = len(out)
		out = append(out, name)
	}
	l.cols = len(header)
	l.width = len(out)
	return l, out, nil
}

// Process reads rows from r and writes them to w with the output columns
// filled in. Row failures are recorded in the row's error column and in the
// summary; only unreadable input or a bad header abort the run.
func Process(r io.Reader, w io.Writer, opts Options) (Summary, error) {
	sep := opts.Separator
	if sep == 0 {
		sep = ','
	}
	outSep := opts.OutputSeparator
	if outSep == 0 {
		outSep = sep
	}
	slv := opts.Solver
	if slv == nil {
		slv = solver.New(solver.DefaultOptions())
	}
	k := opts.Kernel
	if k == nil {
		k = kernel.Analytic{}
	}

	sum := Summary{RunID: uuid.New().String()}

	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cw := csv.NewWriter(w)
	cw.Comma = outSep

	header, err := cr.Read()
	if err == io.EOF {
		return sum, fmt.Errorf("%w: empty input", ErrHeader)
	}
	if err != nil {
		return sum, fmt.Errorf("read header: %w", err)
	}
	l, outHeader, err := parseHeader(header)
	if err != nil {
		return sum, err
	}
	if err := cw.Write(outHeader); err != nil {
		return sum, fmt.Errorf("write header: %w", err)
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("read row: %w", err)
		}
		line, _ := cr.FieldPos(0)

		row := make([]string, l.width)
		copy(row, rec)
		for _, col := range l.out {
			row[col] = ""
		}

		if blank(rec, l) {
			sum.Skipped++
		} else {
			sum.Rows++
			rowErr := checkWidth(rec, l)
			if rowErr == nil {
				rowErr = solveRow(row, l, slv, k, opts)
			} else {
				row[l.out[0]] = ResultError
			}
			if rowErr != nil {
				re := RowError{Line: line, Err: rowErr}
				monitoring.Verbosef("batch: %v", &re)
				sum.Errors = append(sum.Errors, re)
				row[l.out[7]] = rowErr.Error()
			}
			switch row[l.out[0]] {
			case solver.NoIntersection.String():
				sum.None++
			case solver.OnePoint.String():
				sum.One++
			case solver.TwoPoints.String():
				sum.Two++
			default:
				sum.Failed++
			}
		}

		if err := cw.Write(row); err != nil {
			return sum, fmt.Errorf("write row %d: %w", line, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return sum, fmt.Errorf("flush: %w", err)
	}
	return sum, nil
}

func checkWidth(rec []string, l layout) error {
	if len(rec) > l.cols {
		return fmt.Errorf("row has %d fields, header has %d", len(rec), l.cols)
	}
	return nil
}

func blank(rec []string, l layout) bool {
	for _, col := range l.in {
		if col < len(rec) && strings.TrimSpace(rec[col]) != "" {
			return false
		}
	}
	return true
}

// solveRow fills the output columns of row. A returned error leaves the
// result column at "error" unless the solve itself succeeded and only
// verification failed.
func solveRow(row []string, l layout, slv *solver.Solver, k kernel.Kernel, opts Options) error {
	row[l.out[0]] = ResultError

	var v [12]float64
	for i, col := range l.in {
		f, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
		if err != nil {
			return fmt.Errorf("column %s: %w", InputColumns[i], err)
		}
		v[i] = f
	}

	var spheres [3]geom.Sphere
	for i := range spheres {
		s, err := geom.NewSphere(v[4*i], v[4*i+1], v[4*i+2], v[4*i+3])
		if err != nil {
			return fmt.Errorf("sphere %d: %w", i+1, err)
		}
		spheres[i] = s
	}

	res, err := slv.Solve(spheres[0], spheres[1], spheres[2])
	if err != nil {
		return err
	}
	row[l.out[0]] = res.Kind.String()
	for i, p := range res.Points {
		row[l.out[1+3*i]] = formatFloat(p.X)
		row[l.out[2+3*i]] = formatFloat(p.Y)
		row[l.out[3+3*i]] = formatFloat(p.Z)
	}

	if opts.Verify && len(res.Points) > 0 {
		rep, err := kernel.Verify(k, spheres, res.Points, opts.VerifyTolerance)
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		if !rep.OK {
			return fmt.Errorf("verification failed: max residual %g exceeds tolerance %g", rep.MaxResidual(), rep.Tolerance)
		}
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Backup copies path to path.bak, or path.N.bak for the first free N, and
// returns the backup's name. Used before a file is rewritten in place.
func Backup(path string) (string, error) {
	target := path + ".bak"
	for i := 0; ; i++ {
		if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
			break
		} else if err != nil {
			return "", fmt.Errorf("stat %s: %w", target, err)
		}
		target = fmt.Sprintf("%s.%d.bak", path, i)
	}

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("copy to %s: %w", target, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", target, err)
	}
	return target, nil
}
