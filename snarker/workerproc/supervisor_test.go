package workerproc

import (
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// This file spawns the *test binary itself* as the child process, using
// the standard library's re-exec testing idiom (TestMain dispatches to a
// worker-emulator code path when SNARKER_WORKERPROC_HELPER is set): the
// real external worker is an opaque collaborator (spec §1), so the
// fixture only needs to speak the same framed protocol, not produce real
// proofs.

const helperEnv = "SNARKER_WORKERPROC_HELPER"

func TestMain(m *testing.M) {
	if os.Getenv(helperEnv) == "echo" {
		runEchoHelper()
		return
	}
	os.Exit(m.Run())
}

// runEchoHelper behaves like a well-behaved external worker: for every
// WorkRequest frame read from stdin, it waits for either a SIGINT or
// enough time to "compute", then writes back a WorkResponse with one
// deterministic proof per requested instance.
func runEchoHelper() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)

	for {
		frame, err := readFrame(os.Stdin, maxFrameBytes)
		if err != nil {
			return
		}
		req, err := decodeWorkRequest(frame)
		if err != nil {
			os.Exit(2)
		}

		// Simulate enough "compute" time that a cancel sent immediately
		// after submit reliably arrives before the result would have.
		select {
		case <-sigCh:
			continue // cancelled: drop this job, wait for the next frame.
		case <-time.After(150 * time.Millisecond):
		}

		proofs := make([][]byte, req.Instances)
		for i := range proofs {
			proofs[i] = []byte("proof")
		}
		resp := encodeWorkResponse(WorkResponse{Proofs: proofs})
		if err := writeFrame(os.Stdout, resp); err != nil {
			return
		}
	}
}

func testSupervisor(t *testing.T) (*Supervisor, chan Event) {
	t.Helper()
	self, err := os.Executable()
	require.NoError(t, err)

	events := make(chan Event, 16)
	sv := New(self, func(ev Event) { events <- ev })
	sv.newCmd = func() *exec.Cmd {
		cmd := exec.Command(self, "-test.run=^$")
		cmd.Env = append(os.Environ(), helperEnv+"=echo")
		return cmd
	}
	return sv, events
}

func expectEvent(t *testing.T, events chan Event, timeout time.Duration) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(timeout):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

// TestS1WorkerLifecycle exercises scenario S1 from spec.md §8.
func TestS1WorkerLifecycle(t *testing.T) {
	sv, events := testSupervisor(t)
	require.NoError(t, sv.Start())
	require.True(t, expectEvent(t, events, time.Second).Started)

	sv.Kill()
	require.True(t, expectEvent(t, events, time.Second).Killed)
}

// TestS2SuccessfulWork exercises scenario S2.
func TestS2SuccessfulWork(t *testing.T) {
	sv, events := testSupervisor(t)
	require.NoError(t, sv.Start())
	require.True(t, expectEvent(t, events, time.Second).Started)

	require.NoError(t, sv.Submit(Spec{Instances: 2}))
	ev := expectEvent(t, events, 2*time.Second)
	require.NotNil(t, ev.WorkResult)
	require.Len(t, ev.WorkResult.Proofs, 2)

	sv.Kill()
	require.True(t, expectEvent(t, events, time.Second).Killed)
}

// TestSubmitFailsBusy exercises property 5 (worker exclusivity) from
// spec.md §8: submit fails Busy unless the supervisor is Idle.
func TestSubmitFailsBusy(t *testing.T) {
	sv, events := testSupervisor(t)
	require.NoError(t, sv.Start())
	require.True(t, expectEvent(t, events, time.Second).Started)

	require.NoError(t, sv.Submit(Spec{Instances: 1}))
	err := sv.Submit(Spec{Instances: 1})
	require.Error(t, err)
	var evErr *EventError
	require.ErrorAs(t, err, &evErr)
	require.Equal(t, ErrBusy, evErr.Kind)

	sv.Kill()
}

// TestS3CancelThenResubmit exercises scenario S3.
func TestS3CancelThenResubmit(t *testing.T) {
	sv, events := testSupervisor(t)
	require.NoError(t, sv.Start())
	require.True(t, expectEvent(t, events, time.Second).Started)

	require.NoError(t, sv.Submit(Spec{Instances: 1}))
	require.NoError(t, sv.Cancel())
	cancelled := expectEvent(t, events, time.Second)
	require.True(t, cancelled.WorkCancel)

	require.NoError(t, sv.Submit(Spec{Instances: 1}))
	result := expectEvent(t, events, 2*time.Second)
	require.NotNil(t, result.WorkResult)

	sv.Kill()
	require.True(t, expectEvent(t, events, time.Second).Killed)
}

var _ io.Reader = (*os.File)(nil)
