package device

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"sync"

	"github.com/weiihann/kernbench/buffer"
)

// Param describes one parameter of a kernel port.
type Param struct {
	Name   string
	Kind   buffer.Kind
	Scalar bool
}

// BufferParam declares a buffer parameter.
func BufferParam(name string, kind buffer.Kind) Param {
	return Param{Name: name, Kind: kind}
}

// IntParam declares an int32 scalar parameter.
func IntParam(name string) Param {
	return Param{Name: name, Kind: buffer.KindInt32, Scalar: true}
}

// Port is an executable rendition of a kernel entry point. Exactly one of
// Thread or Group is set: Thread runs once per work-item, Group once per
// work-group.
type Port struct {
	Entry   string
	Variant string
	Params  []Param
	Thread  func(tid ThreadID, args Args)
	Group   func(g Group, args Args)
}

type portKey struct {
	entry   string
	variant string
}

// Registry maps entry symbols and variants to ports.
type Registry struct {
	mu    sync.RWMutex
	ports map[portKey]Port
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ports: make(map[portKey]Port)}
}

// Register adds p. An entry/variant pair can only be registered once.
func (r *Registry) Register(p Port) error {
	if p.Entry == "" {
		return fmt.Errorf("register port: empty entry symbol")
	}

	if (p.Thread == nil) == (p.Group == nil) {
		return fmt.Errorf("register port %s: exactly one of Thread or Group must be set", p.Entry)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := portKey{entry: p.Entry, variant: p.Variant}
	if _, ok := r.ports[key]; ok {
		return fmt.Errorf("register port %s/%s: already registered", p.Entry, p.Variant)
	}

	r.ports[key] = p

	return nil
}

// Lookup returns the port for entry and variant.
func (r *Registry) Lookup(entry, variant string) (Port, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.ports[portKey{entry: entry, variant: variant}]

	return p, ok
}

// Ports returns every registered port ordered by entry and variant.
func (r *Registry) Ports() []Port {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ports := make([]Port, 0, len(r.ports))
	for _, p := range r.ports {
		ports = append(ports, p)
	}

	sort.Slice(ports, func(i, j int) bool {
		if ports[i].Entry != ports[j].Entry {
			return ports[i].Entry < ports[j].Entry
		}
		return ports[i].Variant < ports[j].Variant
	})

	return ports
}

var (
	entryPattern   = regexp.MustCompile(`(?m)\b(?:__kernel|kernel)\s+void\s+([A-Za-z_]\w*)\s*\(`)
	variantPattern = regexp.MustCompile(`(?m)^\s*#pragma\s+kernbench\s+variant\s+([A-Za-z_][\w-]*)\s*$`)
)

// Source is the parsed form of a kernel source file.
type Source struct {
	Path    string
	Entries []string
	Variant string
}

// HasEntry reports whether the source declares entry.
func (s Source) HasEntry(entry string) bool {
	for _, e := range s.Entries {
		if e == entry {
			return true
		}
	}

	return false
}

// ReadSource reads a kernel source file and lists the kernel entry
// points it declares.
func ReadSource(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("%w: %v", ErrKernelNotFound, err)
	}

	src := Source{Path: path}
	for _, m := range entryPattern.FindAllSubmatch(data, -1) {
		src.Entries = append(src.Entries, string(m[1]))
	}

	if m := variantPattern.FindSubmatch(data); m != nil {
		src.Variant = string(m[1])
	}

	return src, nil
}

// Resolve finds the port for k: the source must declare k.Entry, and a
// port must be registered for the entry and the variant the source
// selects.
func (r *Registry) Resolve(k Kernel) (Port, Source, error) {
	src, err := ReadSource(k.Path)
	if err != nil {
		return Port{}, src, err
	}

	if !src.HasEntry(k.Entry) {
		return Port{}, src, fmt.Errorf("%w: %s does not declare %q",
			ErrEntryUnresolved, k.Path, k.Entry)
	}

	port, ok := r.Lookup(k.Entry, src.Variant)
	if !ok {
		return Port{}, src, fmt.Errorf("%w: no port for %q variant %q",
			ErrEntryUnresolved, k.Entry, src.Variant)
	}

	return port, src, nil
}
