// Package assets ties a bundle to the serialized files inside it.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/golang/glog"

	"github.com/RailyW/manosaba-index-bg-replace/internal/serialized"
	"github.com/RailyW/manosaba-index-bg-replace/internal/unityfs"
)

var ErrResourceNotFound = errors.New("assets: resource not found")

type Env struct {
	Name   string
	Bundle *unityfs.Bundle
	Files  []*serialized.File

	nodes map[*serialized.File]*unityfs.Node
}

// Ref is one object together with the file that owns it.
type Ref struct {
	File   *serialized.File
	Object *serialized.Object
}

func (r Ref) Read() (map[string]any, error) { return r.File.Read(r.Object) }

func (r Ref) Write(tree map[string]any) error { return r.File.Write(r.Object, tree) }

func (r Ref) Name() string { return r.File.ObjectName(r.Object) }

func Load(p string) (*Env, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	return Parse(p, data)
}

func Parse(name string, data []byte) (*Env, error) {
	b, err := unityfs.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("assets: %s: %w", name, err)
	}
	e := &Env{Name: name, Bundle: b, nodes: map[*serialized.File]*unityfs.Node{}}
	for _, n := range b.Nodes {
		if !n.IsSerializedFile() {
			continue
		}
		f, err := serialized.Parse(n.Path, n.Data())
		if err != nil {
			return nil, fmt.Errorf("assets: %s: %w", name, err)
		}
		e.Files = append(e.Files, f)
		e.nodes[f] = n
	}
	glog.V(1).Infof("assets: %s: %d nodes, %d serialized files", name, len(b.Nodes), len(e.Files))
	return e, nil
}

// Objects lists objects of one class across all serialized files, in file order.
func (e *Env) Objects(classID int32) []Ref {
	var refs []Ref
	for _, f := range e.Files {
		for _, o := range f.Objects {
			if o.ClassID == classID {
				refs = append(refs, Ref{File: f, Object: o})
			}
		}
	}
	return refs
}

// All lists every object in the bundle.
func (e *Env) All() []Ref {
	var refs []Ref
	for _, f := range e.Files {
		for _, o := range f.Objects {
			refs = append(refs, Ref{File: f, Object: o})
		}
	}
	return refs
}

// Resource returns the bytes of a streamed-data path such as
// "archive:/CAB-abc/CAB-abc.resS"; only the last element names the node.
func (e *Env) Resource(p string) ([]byte, error) {
	name := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if n := e.Bundle.Node(name); n != nil {
		return n.Data(), nil
	}
	return nil, fmt.Errorf("%w: %q in %s", ErrResourceNotFound, p, e.Name)
}

// Bytes writes modified serialized files back into their nodes and packs the bundle.
func (e *Env) Bytes() ([]byte, error) {
	for _, f := range e.Files {
		if !f.Dirty() {
			continue
		}
		data, err := f.Bytes()
		if err != nil {
			return nil, fmt.Errorf("assets: %s: %w", e.Name, err)
		}
		e.nodes[f].SetData(data)
		glog.V(1).Infof("assets: %s: rewrote %s (%d bytes)", e.Name, f.Name, len(data))
	}
	return e.Bundle.Bytes()
}
