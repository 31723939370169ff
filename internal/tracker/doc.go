// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

/*
Package tracker is the embeddable capture agent: it buffers pointer
activity, schedules debounced captures, and ships batches and frames to
the ingestion server over WebSocket. Hosts construct a Tracker with a
CaptureFunc that renders the surface being observed.

# Components

  - EventBuffer: throttles move samples, debounces duplicate clicks,
    and age-filters stale samples at drain time
  - CaptureScheduler: debounce timer with a single-flight guard, a
    minimum spacing gate, and a reduced-scale retry on capture failure
  - TransportClient: owns the WebSocket link; queues frames while
    disconnected, reconnects with exponential backoff, and goes
    dormant after the attempt cap until new activity wakes it
  - Tracker: the facade wiring the three together under one session id

# Usage

	trk := tracker.New(cfg, tracker.Page{URL: pageURL}, captureFn)
	trk.Start()

	// feed it activity
	trk.RecordMove(x, y, time.Now())
	trk.RecordClick(x, y, button, target, time.Now())

	// visibility changes
	trk.Suspend()
	trk.Resume()

	// teardown flushes buffered batches and sends session_end
	trk.Destroy(ctx)

# Ordering

All outbound traffic funnels through the transport's single mutex, so
frame order is total: queued frames flush on reconnect strictly before
new traffic, and a capture's metadata frame always immediately precedes
its binary frame. That ordering is the server's correlation key, which
is also why the scheduler allows at most one capture in flight.
*/
package tracker
