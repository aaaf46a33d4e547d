package rpcapi

import (
	"context"
	"net"
	"testing"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/advisor"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/blackjack"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/qtable"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region helpers
func startServer(t *testing.T, svc *advisor.Service) (*Client, *Server) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs, srv := NewServer(svc, zerolog.Nop())
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufnet: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewClientWithConn(conn), srv
}

func loadedService(t *testing.T) *advisor.Service {
	t.Helper()
	tbl := qtable.New()
	tbl.Set(blackjack.State{PlayerTotal: 13, DealerUpcard: 2}, qtable.Values{-0.3, -0.25})
	svc := advisor.NewService()
	if err := svc.Load(tbl, "v1", "store"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return svc
}

// #endregion helpers

func TestAdviseOverGRPC(t *testing.T) {
	client, _ := startServer(t, loadedService(t))
	ctx := context.Background()

	adv, err := client.Advise(ctx, advisor.Request{PlayerTotal: 13, DealerUpcard: 2})
	if err != nil {
		t.Fatalf("Advise: %v", err)
	}
	if adv.Advice != blackjack.Stand || adv.Source != advisor.SourceTable {
		t.Fatalf("unexpected advice %+v", adv)
	}
	if adv.Q.Hit != -0.3 || adv.Q.Stand != -0.25 || adv.State != [3]int{13, 0, 2} {
		t.Fatalf("unexpected payload %+v", adv)
	}

	adv, err = client.Advise(ctx, advisor.Request{PlayerTotal: 25, DealerUpcard: 7})
	if err != nil {
		t.Fatalf("Advise: %v", err)
	}
	if adv.Advice != blackjack.Stand || adv.Source != advisor.SourceFallback {
		t.Fatalf("expected fallback Stand, got %+v", adv)
	}
}

func TestAdviseUnavailableBeforeLoad(t *testing.T) {
	svc := advisor.NewService()
	client, srv := startServer(t, svc)
	ctx := context.Background()

	ready, err := client.Ready(ctx)
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if ready {
		t.Fatal("expected NOT_SERVING before load")
	}
	_, err = client.Advise(ctx, advisor.Request{PlayerTotal: 12, DealerUpcard: 4})
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("expected Unavailable, got %v", err)
	}

	if err := svc.Load(qtable.New(), "v2", "file"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	srv.SyncHealth()
	if ready, _ := client.Ready(ctx); !ready {
		t.Fatal("expected SERVING after load")
	}
	if _, err := client.Advise(ctx, advisor.Request{PlayerTotal: 12, DealerUpcard: 4}); err != nil {
		t.Fatalf("Advise after load: %v", err)
	}
}

func TestAdviseInvalidArgument(t *testing.T) {
	srv := &Server{svc: loadedService(t)}
	bad := []map[string]any{
		{"dealer_upcard": 5},
		{"player_total": "twelve", "dealer_upcard": 5},
		{"player_total": 12.5, "dealer_upcard": 5},
	}
	for _, m := range bad {
		in, err := structpb.NewStruct(m)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := srv.Advise(context.Background(), in); status.Code(err) != codes.InvalidArgument {
			t.Errorf("%v: expected InvalidArgument, got %v", m, err)
		}
	}
}

func TestStructToRequestDefaultsAce(t *testing.T) {
	in, _ := structpb.NewStruct(map[string]any{"player_total": 15, "dealer_upcard": 9})
	req, err := StructToRequest(in)
	if err != nil {
		t.Fatalf("StructToRequest: %v", err)
	}
	if req != (advisor.Request{PlayerTotal: 15, DealerUpcard: 9}) {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestStructToAdviceRejectsBadAction(t *testing.T) {
	in, _ := structpb.NewStruct(map[string]any{"advice": "Double", "state": []any{1, 2, 3}})
	if _, err := StructToAdvice(in); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestNewClientLazy(t *testing.T) {
	c, err := NewClient("localhost:0")
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
