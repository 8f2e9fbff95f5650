package docker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
)

// fakeExec is the scripted behaviour of one exec.
type fakeExec struct {
	stdout   string
	stderr   string
	exitCode int
	// block keeps the output stream open until the attach connection closes.
	block bool
}

type execHandler func(cmd []string, stdin string) fakeExec

type fakeDockerClient struct {
	mu          sync.Mutex
	nextID      int
	imagePulls  []string
	localImages map[string]bool
	pullErr     error
	createErr   error
	startErr    error
	removeErr   error
	// hangExecCreate makes ContainerExecCreate wait for its context, like an
	// unresponsive daemon.
	hangExecCreate bool
	createCalls []containerCreateCall
	startCalls  []string
	stopCalls   []string
	removeCalls []string
	execs       map[string]*fakeExecState
	execOrder   []*fakeExecState
	handler     execHandler
	listed      []types.Container
	closed      bool
}

type containerCreateCall struct {
	id         string
	name       string
	config     *container.Config
	hostConfig *container.HostConfig
}

type fakeExecState struct {
	id          string
	containerID string
	options     container.ExecOptions
	conn        *fakeConn

	mu       sync.Mutex
	finished bool
	exitCode int
}

func newFakeDockerClient() *fakeDockerClient {
	return &fakeDockerClient{
		localImages: make(map[string]bool),
		execs:       make(map[string]*fakeExecState),
		handler: func(cmd []string, stdin string) fakeExec {
			return fakeExec{}
		},
	}
}

func (f *fakeDockerClient) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeDockerClient) ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.localImages[imageID] {
		return types.ImageInspect{ID: imageID}, nil, nil
	}
	return types.ImageInspect{}, nil, errdefs.NotFound(fmt.Errorf("no such image: %s", imageID))
}

func (f *fakeDockerClient) ImagePull(ctx context.Context, ref string, opts image.PullOptions) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imagePulls = append(f.imagePulls, ref)
	if f.pullErr != nil {
		return nil, f.pullErr
	}
	f.localImages[ref] = true
	return io.NopCloser(bytes.NewReader(nil)), nil
}

func (f *fakeDockerClient) ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Container(nil), f.listed...), nil
}

func (f *fakeDockerClient) ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *specs.Platform, containerName string) (container.CreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return container.CreateResponse{}, f.createErr
	}
	id := fmt.Sprintf("container-%d", f.nextID)
	f.nextID++
	f.createCalls = append(f.createCalls, containerCreateCall{id: id, name: containerName, config: config, hostConfig: hostConfig})
	return container.CreateResponse{ID: id}, nil
}

func (f *fakeDockerClient) ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls = append(f.startCalls, containerID)
	return f.startErr
}

func (f *fakeDockerClient) ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls = append(f.stopCalls, containerID)
	return nil
}

func (f *fakeDockerClient) ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls = append(f.removeCalls, containerID)
	return f.removeErr
}

func (f *fakeDockerClient) ContainerExecCreate(ctx context.Context, containerID string, options container.ExecOptions) (types.IDResponse, error) {
	f.mu.Lock()
	hang := f.hangExecCreate
	f.mu.Unlock()
	if hang {
		<-ctx.Done()
		return types.IDResponse{}, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("exec-%d", len(f.execOrder))
	state := &fakeExecState{id: id, containerID: containerID, options: options, conn: newFakeConn()}
	f.execs[id] = state
	f.execOrder = append(f.execOrder, state)
	return types.IDResponse{ID: id}, nil
}

func (f *fakeDockerClient) ContainerExecAttach(ctx context.Context, execID string, options container.ExecStartOptions) (types.HijackedResponse, error) {
	f.mu.Lock()
	state, ok := f.execs[execID]
	handler := f.handler
	f.mu.Unlock()
	if !ok {
		return types.HijackedResponse{}, errdefs.NotFound(fmt.Errorf("no such exec: %s", execID))
	}

	stream := &fakeExecStream{state: state, handler: handler}
	return types.HijackedResponse{Conn: state.conn, Reader: bufio.NewReader(stream)}, nil
}

func (f *fakeDockerClient) ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error) {
	f.mu.Lock()
	state, ok := f.execs[execID]
	f.mu.Unlock()
	if !ok {
		return container.ExecInspect{}, errdefs.NotFound(fmt.Errorf("no such exec: %s", execID))
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return container.ExecInspect{ExecID: execID, Running: !state.finished, ExitCode: state.exitCode}, nil
}

func (f *fakeDockerClient) setHandler(handler execHandler) {
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
}

// execCommands returns the commands of every exec created so far.
func (f *fakeDockerClient) execCommands() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmds := make([][]string, 0, len(f.execOrder))
	for _, state := range f.execOrder {
		cmds = append(cmds, state.options.Cmd)
	}
	return cmds
}

func (f *fakeDockerClient) execStdin(idx int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.execOrder[idx].conn.written()
}

func (f *fakeDockerClient) calls(list *[]string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), (*list)...)
}

// fakeExecStream produces the multiplexed output of an exec once its stdin
// has been closed, mirroring a process that reads all input first.
type fakeExecStream struct {
	state   *fakeExecState
	handler execHandler
	once    sync.Once
	output  *bytes.Reader
	block   bool
}

func (s *fakeExecStream) Read(p []byte) (int, error) {
	s.once.Do(s.produce)
	if s.block {
		<-s.state.conn.closed
		return 0, io.ErrUnexpectedEOF
	}
	return s.output.Read(p)
}

func (s *fakeExecStream) produce() {
	if s.state.options.AttachStdin {
		select {
		case <-s.state.conn.writeClosed:
		case <-s.state.conn.closed:
		}
	}

	result := s.handler(s.state.options.Cmd, s.state.conn.written())
	s.block = result.block

	var buf bytes.Buffer
	if result.stdout != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(result.stdout))
	}
	if result.stderr != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte(result.stderr))
	}
	s.output = bytes.NewReader(buf.Bytes())

	if !result.block {
		s.state.mu.Lock()
		s.state.finished = true
		s.state.exitCode = result.exitCode
		s.state.mu.Unlock()
	}
}

type fakeConn struct {
	mu          sync.Mutex
	buf         bytes.Buffer
	closed      chan struct{}
	writeClosed chan struct{}
	closeOnce   sync.Once
	writeOnce   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{}), writeClosed: make(chan struct{})}
}

func (c *fakeConn) Read(p []byte) (int, error) {
	<-c.closed
	return 0, io.EOF
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *fakeConn) written() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) CloseWrite() error {
	c.writeOnce.Do(func() { close(c.writeClosed) })
	return nil
}

func (c *fakeConn) LocalAddr() net.Addr              { return fakeAddr("local") }
func (c *fakeConn) RemoteAddr() net.Addr             { return fakeAddr("remote") }
func (c *fakeConn) SetDeadline(time.Time) error      { return nil }
func (c *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

type fakeAddr string

func (a fakeAddr) Network() string { return string(a) }
func (a fakeAddr) String() string  { return string(a) }
