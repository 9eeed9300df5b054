package migrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/dmitrijs2005/accounts/internal/checksum"
	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/logging"
	"golang.org/x/sync/errgroup"
)

// DefaultPattern matches goose versioned SQL migrations by base name.
const DefaultPattern = "[0-9]*_*.sql"

// HistoryReader is the part of the schema history the verifier needs.
type HistoryReader interface {
	FindChecksum(ctx context.Context, script string) (int32, error)
	CountSuccessful(ctx context.Context) (int, error)
}

// MissingRecordError reports a script with no schema history row.
type MissingRecordError struct {
	Script string
}

func (e *MissingRecordError) Error() string {
	return fmt.Sprintf("no schema history record for '%s'", e.Script)
}

func (e *MissingRecordError) Unwrap() error { return common.ErrorNotFound }

// CountMismatchError reports a number of successful migrations different
// from the expected one.
type CountMismatchError struct {
	Expected int
	Actual   int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("expected %d successful migrations, found %d", e.Expected, e.Actual)
}

// ScriptResult is the outcome for one script. Err is nil, a
// *checksum.MismatchError or a *MissingRecordError.
type ScriptResult struct {
	Script   string
	Path     string
	Computed int32
	Recorded int32
	Err      error
}

// Report collects the per-script results and the successful-migration count.
type Report struct {
	Scripts    []ScriptResult
	Successful int
	Expected   int
}

// Failed returns the scripts that did not verify.
func (r *Report) Failed() []ScriptResult {
	var failed []ScriptResult
	for _, s := range r.Scripts {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

// Err joins every verification failure, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, s := range r.Failed() {
		errs = append(errs, s.Err)
	}
	if r.Successful != r.Expected {
		errs = append(errs, &CountMismatchError{Expected: r.Expected, Actual: r.Successful})
	}
	return errors.Join(errs...)
}

type VerifierOption func(*Verifier)

// WithPattern overrides DefaultPattern.
func WithPattern(p string) VerifierOption {
	return func(v *Verifier) { v.pattern = p }
}

// WithConcurrency bounds the number of scripts checked at once.
func WithConcurrency(n int) VerifierOption {
	return func(v *Verifier) { v.concurrency = n }
}

// WithLogger attaches a logger. Failures are logged as warnings.
func WithLogger(l logging.Logger) VerifierOption {
	return func(v *Verifier) { v.logger = l.With("module", "verifier") }
}

// Verifier checks the scripts under fsys against the recorded schema history.
type Verifier struct {
	fsys        fs.FS
	history     HistoryReader
	pattern     string
	concurrency int
	logger      logging.Logger
}

func NewVerifier(fsys fs.FS, h HistoryReader, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		fsys:        fsys,
		history:     h,
		pattern:     DefaultPattern,
		concurrency: 4,
		logger:      logging.Nop(),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Scripts lists the paths under the root whose base name matches the pattern,
// in lexical walk order.
func (v *Verifier) Scripts() ([]string, error) {
	var scripts []string
	err := fs.WalkDir(v.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, err := path.Match(v.pattern, d.Name())
		if err != nil {
			return err
		}
		if ok {
			scripts = append(scripts, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing migration scripts: %w", err)
	}
	return scripts, nil
}

// Verify recomputes every script checksum and compares it with the recorded
// one, then checks the number of successful migrations against expected.
// Mismatches are reported in the Report; unreadable scripts and database
// failures abort verification and are returned as the error.
func (v *Verifier) Verify(ctx context.Context, expected int) (*Report, error) {
	scripts, err := v.Scripts()
	if err != nil {
		return nil, err
	}

	results := make([]ScriptResult, len(scripts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(v.concurrency, 1))

	for i, p := range scripts {
		g.Go(func() error {
			res, err := v.verifyScript(gctx, p)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	successful, err := v.history.CountSuccessful(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting successful migrations: %w", err)
	}

	report := &Report{Scripts: results, Successful: successful, Expected: expected}

	for _, s := range report.Failed() {
		v.logger.Warn(ctx, "Checksum verification failed", "script", s.Script, "error", s.Err.Error())
	}
	if successful != expected {
		v.logger.Warn(ctx, "Unexpected number of successful migrations", "expected", expected, "actual", successful)
	}

	return report, nil
}

func (v *Verifier) verifyScript(ctx context.Context, p string) (ScriptResult, error) {
	res := ScriptResult{Script: path.Base(p), Path: p}

	computed, err := checksum.ComputeFile(v.fsys, p)
	if err != nil {
		return res, err
	}
	res.Computed = computed

	recorded, err := v.history.FindChecksum(ctx, res.Script)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			res.Err = &MissingRecordError{Script: res.Script}
			return res, nil
		}
		return res, fmt.Errorf("reading checksum of %s: %w", res.Script, err)
	}
	res.Recorded = recorded
	res.Err = checksum.Verify(res.Script, computed, recorded)

	return res, nil
}
