package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/runziggurat/zcash/internal/crawler"
	"github.com/runziggurat/zcash/internal/metrics"
	"github.com/runziggurat/zcash/internal/network"
)

// crawlerService adapts *crawler.Crawler to servicemanager.Service.
type crawlerService struct {
	c  *crawler.Crawler
	kn *network.KnownNetwork
}

func (s *crawlerService) Init(context.Context) error { return nil }

func (s *crawlerService) Start(ctx context.Context, readyCh chan struct{}) error {
	close(readyCh)
	return s.c.Run(ctx)
}

func (s *crawlerService) Stop(context.Context) error { return nil }

func (s *crawlerService) Health(context.Context, bool) (int, string, error) {
	return http.StatusOK, "crawler running", nil
}

// Status implements servicemanager.StatusReporter, surfacing crawl progress
// on the /services/status endpoint and in the shutdown log.
func (s *crawlerService) Status() string {
	snap := metrics.Compute(s.kn)
	return fmt.Sprintf("known=%d good=%d connections=%d", snap.NumKnownNodes, snap.NumGoodNodes, snap.NumKnownConnections)
}
