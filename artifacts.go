package f1bot

import (
	"bytes"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Artifact is a rendered chart held in memory until it is attached to a reply.
type Artifact struct {
	Name string
	Data *bytes.Buffer

	// Path is set when the artifact was also persisted to disk.
	Path string
}

// Artifacts renders charts into per-invocation buffers, optionally keeping a
// copy of each in dir.
type Artifacts struct {
	dir string

	create func(dir, pattern string) (artifactFile, error)
}

type artifactFile interface {
	io.WriteCloser
	Name() string
}

func createTemp(dir, pattern string) (artifactFile, error) {
	return os.CreateTemp(dir, pattern)
}

func NewArtifacts(dir string) (*Artifacts, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "f1bot: could not create artifact directory %s", dir)
		}
	}

	return &Artifacts{dir: dir, create: createTemp}, nil
}

// Render runs render against a fresh buffer. Every artifact gets a unique name,
// so concurrent invocations of the same command never share a file.
func (a *Artifacts) Render(command string, render func(w io.Writer) error) (*Artifact, error) {
	artifact := &Artifact{
		Name: command + "-" + uuid.New().String() + ".png",
		Data: new(bytes.Buffer),
	}

	if err := render(artifact.Data); err != nil {
		return nil, err
	}

	if a.dir == "" {
		return artifact, nil
	}

	f, err := a.create(a.dir, command+"-*.png")

	if err != nil {
		return nil, errors.Wrap(err, "f1bot: could not create artifact file")
	}

	_, err = f.Write(artifact.Data.Bytes())

	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		if removeErr := os.Remove(f.Name()); removeErr != nil {
			logrus.WithError(removeErr).Warnf("Could not remove partial artifact %s", f.Name())
		}

		return nil, errors.Wrapf(err, "f1bot: could not write artifact %s", f.Name())
	}

	artifact.Path = f.Name()

	logrus.Debugf("Saved %s artifact to %s", command, artifact.Path)

	return artifact, nil
}

// Send attaches the artifact to a reply.
func (a *Artifact) Send(r Responder) error {
	return r.SendFile(a.Name, bytes.NewReader(a.Data.Bytes()))
}
