package main

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/orbit-engine/internal/api"
	"github.com/signalsfoundry/orbit-engine/internal/logging"
)

func TestEngineServerStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	cfg := Config{
		ListenAddress:  lis.Addr().String(),
		MetricsAddress: "",
		SystemPath:     "../../configs/solar_system.json",
		TickInterval:   5 * time.Millisecond,
		Accelerated:    true,
	}
	log := logging.New(logging.Config{Level: "warn", Format: "text"})

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, log, lis)
	}()

	conn, err := grpc.DialContext(ctx, cfg.ListenAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.DialContext: %v", err)
	}
	defer conn.Close()

	client := api.NewEngineClient(conn)
	bodies, err := client.ListBodies(ctx)
	if err != nil {
		t.Fatalf("ListBodies: %v", err)
	}
	if len(bodies) == 0 {
		t.Fatal("server loaded no bodies")
	}

	// The accelerated frame loop keeps advancing the clock.
	deadline := time.Now().Add(2 * time.Second)
	for {
		clock, err := client.GetClock(ctx)
		if err != nil {
			t.Fatalf("GetClock: %v", err)
		}
		if clock.ElapsedSeconds > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("frame loop did not advance the clock")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()

	if err := <-errCh; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}

func TestRunCommandPrintsFrames(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--duration", "1s", "--tick", "100ms", "--every", "5", "--log-level", "error"})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	if n := strings.Count(got, "t="); n != 2 {
		t.Fatalf("expected 2 printed frames, got %d:\n%s", n, got)
	}
	if !strings.Contains(got, "Halley's Comet") {
		t.Fatalf("expected default system bodies in output:\n%s", got)
	}
}

func TestPositionsCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "single body", args: []string{"positions", "--at", "15", "--body", "Earth"}, want: "Earth"},
		{name: "orbit path", args: []string{"positions", "--body", "Mars", "--path", "8"}, want: "# Mars (8 points)"},
		{name: "unknown body", args: []string{"positions", "--body", "Pluto"}, wantErr: true},
		{name: "path too short", args: []string{"positions", "--path", "2"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := newRootCmd()
			cmd.SetOut(&out)
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tc.args)

			err := cmd.Execute()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, output:\n%s", out.String())
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if !strings.Contains(out.String(), tc.want) {
				t.Fatalf("output missing %q:\n%s", tc.want, out.String())
			}
		})
	}
}
