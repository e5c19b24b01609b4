package main

import (
	"context"
	"net/http"

	"github.com/runziggurat/zcash/internal/rpcserver"
)

// rpcService adapts *rpcserver.Server to servicemanager.Service.
type rpcService struct {
	s    *rpcserver.Server
	addr string
}

func (r *rpcService) Init(context.Context) error { return nil }

func (r *rpcService) Start(ctx context.Context, readyCh chan struct{}) error {
	close(readyCh)
	return r.s.ListenAndServe(ctx)
}

func (r *rpcService) Stop(context.Context) error { return nil }

func (r *rpcService) Health(context.Context, bool) (int, string, error) {
	return http.StatusOK, "rpc server running", nil
}

// Status implements servicemanager.StatusReporter.
func (r *rpcService) Status() string {
	return "listening on " + r.addr
}
