package f1bot

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
)

func TestArtifactsRender(t *testing.T) {
	artifacts, err := NewArtifacts("")

	if err != nil {
		t.Fatal(err)
	}

	const renders = 20

	var (
		wg    sync.WaitGroup
		mutex sync.Mutex
		names = make(map[string]string)
	)

	for i := 0; i < renders; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			content := fmt.Sprintf("chart %d", i)

			artifact, err := artifacts.Render("speedtrace", func(w io.Writer) error {
				_, err := io.WriteString(w, content)
				return err
			})

			if err != nil {
				t.Error(err)
				return
			}

			mutex.Lock()
			defer mutex.Unlock()

			if _, ok := names[artifact.Name]; ok {
				t.Errorf("Duplicate artifact name: %s", artifact.Name)
			}

			names[artifact.Name] = artifact.Data.String()

			if artifact.Data.String() != content {
				t.Errorf("Artifact %s has content %q, expected %q", artifact.Name, artifact.Data.String(), content)
			}
		}(i)
	}

	wg.Wait()

	if len(names) != renders {
		t.Logf("Expected %d artifacts, got %d", renders, len(names))
		t.Fail()
	}

	for name := range names {
		if !strings.HasPrefix(name, "speedtrace-") || !strings.HasSuffix(name, ".png") {
			t.Logf("Unexpected name: %s", name)
			t.Fail()
		}
	}
}

func TestArtifactsPersist(t *testing.T) {
	dir := t.TempDir()

	artifacts, err := NewArtifacts(dir)

	if err != nil {
		t.Fatal(err)
	}

	first, err := artifacts.Render("gearshifts", func(w io.Writer) error {
		_, err := io.WriteString(w, "first")
		return err
	})

	if err != nil {
		t.Fatal(err)
	}

	second, err := artifacts.Render("gearshifts", func(w io.Writer) error {
		_, err := io.WriteString(w, "second")
		return err
	})

	if err != nil {
		t.Fatal(err)
	}

	if first.Path == "" || first.Path == second.Path {
		t.Logf("Expected distinct paths, got %q and %q", first.Path, second.Path)
		t.FailNow()
	}

	data, err := os.ReadFile(first.Path)

	if err != nil || string(data) != "first" {
		t.Logf("Unexpected file content %q (%v)", data, err)
		t.Fail()
	}

	r := newDummyResponder()

	if err := second.Send(r); err != nil {
		t.Fatal(err)
	}

	if string(r.files[second.Name]) != "second" {
		t.Logf("Unexpected attachment: %q", r.files[second.Name])
		t.Fail()
	}

	entries, err := os.ReadDir(dir)

	if err != nil || len(entries) != 2 {
		t.Logf("Expected two files in the artifact dir, got %d (%v)", len(entries), err)
		t.Fail()
	}
}

func TestArtifactsRenderError(t *testing.T) {
	artifacts, err := NewArtifacts(t.TempDir())

	if err != nil {
		t.Fatal(err)
	}

	renderErr := errors.New("nothing to draw")

	if _, err := artifacts.Render("racepace", func(w io.Writer) error { return renderErr }); err != renderErr {
		t.Logf("Expected render error, got %v", err)
		t.Fail()
	}
}

type failingFile struct {
	*os.File

	writeErr, closeErr error
}

func (f *failingFile) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		// leave a partial file behind
		n, _ := f.File.Write(p[:len(p)/2])
		return n, f.writeErr
	}

	return f.File.Write(p)
}

func (f *failingFile) Close() error {
	if err := f.File.Close(); err != nil {
		return err
	}

	return f.closeErr
}

func TestArtifactsPersistFailure(t *testing.T) {
	testCases := map[string]*failingFile{
		"write": {writeErr: errors.New("disk full")},
		"close": {closeErr: errors.New("disk full")},
	}

	for name, failing := range testCases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()

			artifacts, err := NewArtifacts(dir)

			if err != nil {
				t.Fatal(err)
			}

			artifacts.create = func(dir, pattern string) (artifactFile, error) {
				f, err := os.CreateTemp(dir, pattern)

				if err != nil {
					return nil, err
				}

				failing.File = f

				return failing, nil
			}

			_, err = artifacts.Render("teampace", func(w io.Writer) error {
				_, err := io.WriteString(w, "some chart data")
				return err
			})

			if err == nil || !strings.Contains(err.Error(), "disk full") {
				t.Logf("Expected the %s error, got %v", name, err)
				t.Fail()
			}

			entries, err := os.ReadDir(dir)

			if err != nil || len(entries) != 0 {
				t.Logf("Expected the partial file to be removed, got %d files (%v)", len(entries), err)
				t.Fail()
			}
		})
	}
}
