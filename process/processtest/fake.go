// Package processtest provides in-memory process providers for tests.
package processtest

import (
	"sync"

	"vmattach/process"
)

// Provider is a process.Provider whose live set is controlled by the test.
type Provider struct {
	mu          sync.Mutex
	descriptors []process.Descriptor
	listErr     error
	listCalls   int
}

// NewProvider creates a provider listing the given descriptors.
func NewProvider(descriptors ...process.Descriptor) *Provider {
	return &Provider{descriptors: descriptors}
}

// Set replaces the live set.
func (p *Provider) Set(descriptors ...process.Descriptor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.descriptors = descriptors
}

// SetListError makes List fail.
func (p *Provider) SetListError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listErr = err
}

// ListCalls returns how many times List was called.
func (p *Provider) ListCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listCalls
}

func (p *Provider) List() ([]process.Descriptor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listCalls++
	if p.listErr != nil {
		return nil, p.listErr
	}
	out := make([]process.Descriptor, len(p.descriptors))
	copy(out, p.descriptors)
	return out, nil
}

// Descriptor hands out a fresh Conn on every Connect, the way a host
// provider would.
type Descriptor struct {
	Id   string
	Name string

	// ConnectErr makes Connect fail.
	ConnectErr error

	// NewConn, when set, builds the connection instead of the default.
	NewConn func(id string) *Conn

	mu    sync.Mutex
	conns []*Conn
}

// NewDescriptor returns a descriptor for id.
func NewDescriptor(id, name string) *Descriptor {
	return &Descriptor{Id: id, Name: name}
}

func (d *Descriptor) ID() string          { return d.Id }
func (d *Descriptor) DisplayName() string { return d.Name }

func (d *Descriptor) Connect() (process.Connection, error) {
	if d.ConnectErr != nil {
		return nil, d.ConnectErr
	}
	var c *Conn
	if d.NewConn != nil {
		c = d.NewConn(d.Id)
	} else {
		c = NewConn(d.Id)
	}
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

// Conns returns every connection handed out so far.
func (d *Descriptor) Conns() []*Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Conn, len(d.conns))
	copy(out, d.conns)
	return out
}

// Conn is a scriptable process.Connection.
type Conn struct {
	Id string

	mu         sync.Mutex
	props      map[string]string
	propsErr   error
	fetchCalls int
	loadCalls  int
	detached   int
	detachErr  error

	// Load is called by LoadAgent; nil means success.
	Load func(path, options string) error
}

// NewConn returns a connection with an empty property set.
func NewConn(id string) *Conn {
	return &Conn{Id: id, props: map[string]string{}}
}

func (c *Conn) ID() string { return c.Id }

// SetProperties sets the properties returned by FetchProperties, and the
// error returned with them.
func (c *Conn) SetProperties(props map[string]string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.props = props
	c.propsErr = err
}

// SetDetachError makes Detach fail.
func (c *Conn) SetDetachError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detachErr = err
}

func (c *Conn) FetchProperties() (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchCalls++
	out := make(map[string]string, len(c.props))
	for k, v := range c.props {
		out[k] = v
	}
	return out, c.propsErr
}

func (c *Conn) LoadAgent(path, options string) error {
	c.mu.Lock()
	c.loadCalls++
	load := c.Load
	c.mu.Unlock()
	if load == nil {
		return nil
	}
	return load(path, options)
}

func (c *Conn) Detach() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detached++
	return c.detachErr
}

// FetchCalls returns the number of FetchProperties calls.
func (c *Conn) FetchCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchCalls
}

// LoadCalls returns the number of LoadAgent calls.
func (c *Conn) LoadCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadCalls
}

// Detached returns the number of Detach calls.
func (c *Conn) Detached() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.detached
}
