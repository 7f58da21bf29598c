package sensor

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/sweeney/dogwatch/internal/detect"
)

// The helper protocol frames msgpack maps with a 4-byte big-endian length
// prefix in both directions. Each capture is one request/response pair;
// responses echo the request seq so replies to abandoned exchanges can be
// discarded.
const (
	// maxHelperMessage bounds one framed message. A full-resolution JPEG
	// from the module is a few MB; anything near this limit means the
	// stream is corrupt.
	maxHelperMessage = 16 << 20

	helperStopTimeout = 2 * time.Second
)

type captureRequest struct {
	Cmd string `msgpack:"cmd"`
	Seq uint64 `msgpack:"seq"`
}

type helperDetection struct {
	Label string     `msgpack:"label"`
	Score float64    `msgpack:"score"`
	Box   [4]float64 `msgpack:"box"` // normalized x1,y1,x2,y2
}

type helperResponse struct {
	Seq         uint64            `msgpack:"seq"`
	TimestampNS int64             `msgpack:"timestamp_ns"`
	Width       int               `msgpack:"width"`
	Height      int               `msgpack:"height"`
	JPEG        []byte            `msgpack:"jpeg"`
	Detections  []helperDetection `msgpack:"detections"`
	Error       string            `msgpack:"error"`
}

func (r helperResponse) sample() Sample {
	detections := make([]detect.Detection, 0, len(r.Detections))
	for _, d := range r.Detections {
		detections = append(detections, detect.Detection{
			Label: d.Label,
			Score: d.Score,
			Box:   detect.Rect{X1: d.Box[0], Y1: d.Box[1], X2: d.Box[2], Y2: d.Box[3]},
		})
	}
	ts := time.Now()
	if r.TimestampNS > 0 {
		ts = time.Unix(0, r.TimestampNS)
	}
	return Sample{
		Time:       ts,
		Detections: detections,
		JPEG:       r.JPEG,
		Width:      r.Width,
		Height:     r.Height,
	}
}

// IMX500Source acquires samples from a camera helper process. The helper
// owns the picamera2 stack and the on-module inference; this side only
// speaks the framed msgpack protocol. One capture exchange runs at a time.
type IMX500Source struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdin  io.WriteCloser
	stdout io.ReadCloser
	wg     sync.WaitGroup

	// responses carries decoded helper replies out of the read loop. The
	// channel is closed when the helper's stdout ends.
	responses chan helperResponse

	mu  sync.Mutex // serializes capture exchanges
	seq uint64
}

// StartIMX500 launches the helper process and starts its pipe goroutines.
// The helper exits on stdin EOF; Close relies on that for a graceful stop.
func StartIMX500(command string, args ...string) (*IMX500Source, error) {
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, command, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start helper %s: %w", command, err)
	}
	log.Printf("sensor: helper started: %s (pid %d)", command, cmd.Process.Pid)

	s := &IMX500Source{
		cmd:       cmd,
		cancel:    cancel,
		stdin:     stdin,
		stdout:    stdout,
		responses: make(chan helperResponse, 4),
	}

	s.wg.Add(3)
	go s.readLoop()
	go s.logStderr(stderr)
	go s.waitProcess()

	return s, nil
}

// newIMX500Pipes wires a source over explicit pipes with no subprocess.
// Tests use it to exercise the protocol against an in-process helper.
func newIMX500Pipes(stdin io.WriteCloser, stdout io.ReadCloser) *IMX500Source {
	s := &IMX500Source{
		stdin:     stdin,
		stdout:    stdout,
		responses: make(chan helperResponse, 4),
	}
	s.wg.Add(1)
	go s.readLoop()
	return s
}

// Acquire requests one capture and waits for the matching reply.
func (s *IMX500Source) Acquire(ctx context.Context) (Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if err := s.send(ctx, captureRequest{Cmd: "capture", Seq: s.seq}); err != nil {
		return Sample{}, err
	}

	for {
		select {
		case <-ctx.Done():
			return Sample{}, fmt.Errorf("acquire: %w", ctx.Err())
		case resp, ok := <-s.responses:
			if !ok {
				return Sample{}, errors.New("helper stream closed")
			}
			if resp.Seq != s.seq {
				// Reply to an exchange a previous timeout abandoned.
				continue
			}
			if resp.Error != "" {
				return Sample{}, fmt.Errorf("helper: %s", resp.Error)
			}
			if len(resp.JPEG) == 0 {
				return Sample{}, errors.New("helper returned empty frame")
			}
			return resp.sample(), nil
		}
	}
}

// send writes one framed request. The write runs on its own goroutine so a
// hung helper can not stall the caller past its context.
func (s *IMX500Source) send(ctx context.Context, req captureRequest) error {
	payload, err := msgpack.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- writeFrame(s.stdin, payload)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("write request: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("write request: %w", ctx.Err())
	}
}

// readLoop decodes framed responses until stdout ends, then closes the
// responses channel.
func (s *IMX500Source) readLoop() {
	defer s.wg.Done()
	defer close(s.responses)

	for {
		payload, err := readFrame(s.stdout, maxHelperMessage)
		if err != nil {
			if err != io.EOF {
				log.Printf("sensor: helper read: %v", err)
			}
			return
		}
		var resp helperResponse
		if err := msgpack.Unmarshal(payload, &resp); err != nil {
			log.Printf("sensor: helper decode: %v", err)
			continue
		}
		select {
		case s.responses <- resp:
		default:
			// The helper outran the consumer; only the newest reply is
			// worth keeping. Single sender, so this cannot race.
			select {
			case <-s.responses:
			default:
			}
			s.responses <- resp
		}
	}
}

// logStderr relays the helper's stderr lines into the daemon log.
func (s *IMX500Source) logStderr(stderr io.Reader) {
	defer s.wg.Done()
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		log.Printf("sensor: helper: %s", scanner.Text())
	}
}

// waitProcess reaps the helper so it can not linger as a zombie.
func (s *IMX500Source) waitProcess() {
	defer s.wg.Done()
	if err := s.cmd.Wait(); err != nil {
		log.Printf("sensor: helper exited: %v", err)
		return
	}
	log.Printf("sensor: helper exited cleanly")
}

// Close stops the helper: stdin EOF asks it to exit, and if it has not
// within helperStopTimeout it is killed.
func (s *IMX500Source) Close() error {
	s.stdin.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(helperStopTimeout):
		if s.cancel != nil {
			log.Printf("sensor: helper stop timeout, killing")
			s.cancel()
		} else {
			s.stdout.Close()
		}
		<-done
	}
	return nil
}

// writeFrame writes one length-prefixed message.
func writeFrame(w io.Writer, payload []byte) error {
	prefix := make([]byte, 4)
	binary.BigEndian.PutUint32(prefix, uint32(len(payload)))
	if _, err := w.Write(prefix); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// readFrame reads one length-prefixed message of at most limit bytes.
func readFrame(r io.Reader, limit uint32) ([]byte, error) {
	prefix := make([]byte, 4)
	if _, err := io.ReadFull(r, prefix); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}
	n := binary.BigEndian.Uint32(prefix)
	if n == 0 || n > limit {
		return nil, fmt.Errorf("bad frame length %d", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("short frame: %w", err)
	}
	return payload, nil
}
