// Package exiftool wraps a long-running `exiftool -stay_open` process, the
// program's single metadata read/write collaborator. One Tool is opened per
// batch of operations and closed when the batch is done.
package exiftool

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"

	"mediashift/internal/exif"
)

type config struct {
	executable       string
	bufferOpenArgs   []string
	readyToken       []byte
	readyTokenLength int
	bufferCloseArgs  []string
	dataExtractArgs  []string
	executeArg       string
}

type procIO struct {
	lock          sync.Mutex
	stdin         io.WriteCloser
	stdMergedOut  io.ReadCloser
	scanMergedOut *bufio.Scanner
}

// Tool is a handle on one running exiftool process.
type Tool struct {
	config config
	io     procIO
}

func defaults() config {
	var readyToken []byte
	if runtime.GOOS == "windows" {
		readyToken = []byte("{ready}\r\n")
	} else {
		readyToken = []byte("{ready}\n")
	}

	return config{
		executable:       "exiftool",
		bufferOpenArgs:   []string{"-stay_open", "True", "-@", "-", "-common_args"},
		readyToken:       readyToken,
		readyTokenLength: len(readyToken),
		bufferCloseArgs:  []string{"-stay_open", "False", "-execute"},
		// -extractEmbedded makes nested telemetry (action cameras)
		// visible; without it GoPro GPS fields never appear.
		dataExtractArgs: []string{"-json", "-G", "-api", "largefilesupport=1", "-extractEmbedded"},
		executeArg:      "-execute",
	}
}

// New starts an exiftool process and returns a ready Tool.
func New() (*Tool, error) {
	t := &Tool{config: defaults()}

	cmd := exec.Command(t.config.executable, t.config.bufferOpenArgs...)
	r, w := io.Pipe()
	t.io.stdMergedOut = r

	cmd.Stdout = w
	cmd.Stderr = w

	var err error
	if t.io.stdin, err = cmd.StdinPipe(); err != nil {
		return nil, fmt.Errorf("piping stdin: %w", err)
	}

	t.io.scanMergedOut = bufio.NewScanner(r)
	t.io.scanMergedOut.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	t.io.scanMergedOut.Split(t.splitReadyToken)

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", t.config.executable, err)
	}

	return t, nil
}

func (t *Tool) splitReadyToken(data []byte, atEOF bool) (int, []byte, error) {
	idx := bytes.Index(data, t.config.readyToken)
	if idx == -1 {
		if atEOF && len(data) > 0 {
			return 0, data, fmt.Errorf("no final token found")
		}
		return 0, nil, nil
	}

	return idx + t.config.readyTokenLength, data[:idx], nil
}

// Close shuts the exiftool process down. A non-nil error means the process
// may still be running.
func (t *Tool) Close() error {
	t.io.lock.Lock()
	defer t.io.lock.Unlock()

	for _, v := range t.config.bufferCloseArgs {
		if _, err := fmt.Fprintln(t.io.stdin, v); err != nil {
			return err
		}
	}

	var errs []error
	if err := t.io.stdMergedOut.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing stdMergedOut: %w", err))
	}
	if err := t.io.stdin.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing stdin: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("closing exiftool: %v", errs)
	}

	return nil
}

// Extract fetches one snapshot per path in a single backend round trip,
// preserving input order. Missing paths fail before the process is
// consulted, because our error is more specific than the backend's.
func (t *Tool) Extract(paths ...string) ([]exif.Snapshot, error) {
	if err := checkPaths(paths); err != nil {
		return nil, err
	}

	t.io.lock.Lock()
	defer t.io.lock.Unlock()

	for _, arg := range t.config.dataExtractArgs {
		fmt.Fprintln(t.io.stdin, arg)
	}
	for _, p := range paths {
		fmt.Fprintln(t.io.stdin, p)
	}
	fmt.Fprintln(t.io.stdin, t.config.executeArg)

	out, err := t.readResponse()
	if err != nil {
		return nil, err
	}

	return parseSnapshots(out, len(paths))
}

// ExtractOne is the single-file form of Extract. Zero or multiple records
// for one path get their own, more precise errors.
func (t *Tool) ExtractOne(path string) (exif.Snapshot, error) {
	snaps, err := t.Extract(path)
	if err != nil {
		var mismatch *CountMismatchError
		if errors.As(err, &mismatch) {
			if mismatch.Got == 0 {
				return nil, &NoMetadataError{Path: path}
			}
			return nil, &AmbiguousMetadataError{Path: path, Count: mismatch.Got}
		}
		return nil, err
	}
	return snaps[0], nil
}

// Write applies tag directives ("-TAG=v", "-TAG+=v", "-TAG<fmt") to the
// given paths in one backend invocation. With overwrite set the backend
// edits files in place; otherwise it leaves its own `_original` sidecars.
func (t *Tool) Write(directives []string, paths []string, overwrite bool) error {
	if len(directives) == 0 {
		return nil
	}
	if err := checkPaths(paths); err != nil {
		return err
	}

	t.io.lock.Lock()
	defer t.io.lock.Unlock()

	if overwrite {
		fmt.Fprintln(t.io.stdin, "-overwrite_original")
	}
	for _, d := range directives {
		fmt.Fprintln(t.io.stdin, d)
	}
	for _, p := range paths {
		fmt.Fprintln(t.io.stdin, p)
	}
	fmt.Fprintln(t.io.stdin, t.config.executeArg)

	out, err := t.readResponse()
	if err != nil {
		return err
	}
	if line, failed := errorLine(out); failed {
		return fmt.Errorf("exiftool write failed: %s", line)
	}

	return nil
}

// errorLine finds the backend's "Error: ..." diagnostic line, if any.
// Matching anywhere in the output would trip over paths and tag values
// that merely contain the word.
func errorLine(out []byte) ([]byte, bool) {
	for _, line := range bytes.Split(out, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimSpace(line), []byte("Error:")) {
			return bytes.TrimSpace(line), true
		}
	}
	return nil, false
}

func (t *Tool) readResponse() ([]byte, error) {
	if !t.io.scanMergedOut.Scan() {
		return nil, fmt.Errorf("nothing on stdMergedOut")
	}
	if err := t.io.scanMergedOut.Err(); err != nil {
		return nil, fmt.Errorf("reading stdMergedOut: %w", err)
	}
	return t.io.scanMergedOut.Bytes(), nil
}

// parseSnapshots decodes the backend's JSON array into snapshots and
// enforces the one-result-per-input invariant. A count mismatch aborts:
// re-pairing results by position would silently misattribute metadata.
func parseSnapshots(jsonBytes []byte, want int) ([]exif.Snapshot, error) {
	var records []map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &records); err != nil {
		return nil, fmt.Errorf("unmarshaling %q: %w", string(jsonBytes), err)
	}

	if len(records) != want {
		return nil, &CountMismatchError{Want: want, Got: len(records)}
	}

	snaps := make([]exif.Snapshot, len(records))
	for i, rec := range records {
		snap := make(exif.Snapshot, len(rec))
		for k, v := range rec {
			snap[k] = stringify(v)
		}
		snaps[i] = snap
	}

	return snaps, nil
}

func stringify(val interface{}) string {
	switch v := val.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func checkPaths(paths []string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return &NotFoundError{Path: p}
		}
	}
	return nil
}
