// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package workpool runs batches of interdependent tasks on a fixed
// number of worker goroutines.
//
// A task reports one of three outcomes. [Success] retires it. [Delay]
// means the task is not ready yet: it goes to the back of the queue
// and is not retried until some other task has succeeded, so workers
// block instead of spinning on tasks whose preconditions cannot have
// changed. A non-nil error (or [Fail]) aborts the batch; tasks still
// queued are discarded and [Batch.Wait] returns the first failure.
//
// Ordering between tasks is expressed only through Delay. If every
// queued task is delayed and nothing is running, no task can ever
// become ready and Wait returns [ErrCycle].
//
//	pool := workpool.New(workpool.Config{Workers: 12, Logger: logger})
//	batch := pool.Start()
//	for _, node := range nodes {
//	    batch.Push(node.Name, node.Repack)
//	}
//	stats, err := batch.Wait()
package workpool
