/*
	Basic script that runs many optimistic writers against one log to exercise
	PUT conflicts. Start a server first.
*/

package main

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xRadioAc7iv/go-filelog/filelog"
)

const (
	concurrency = 6

	logName          = "race"
	entriesPerWorker = 2000

	progressEvery = 500
)

func main() {
	start := time.Now()
	fmt.Println("Starting filelog optimistic append load generator")

	setup, err := filelog.Connect()
	if err != nil {
		fmt.Println("connect error:", err)
		return
	}
	if err := setup.Create(logName); err != nil && !errors.Is(err, filelog.ErrExists) {
		fmt.Println("create error:", err)
		return
	}
	setup.Close()

	var conflicts atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(id, &conflicts)
		}(i)
	}

	wg.Wait()
	fmt.Printf("Load finished in %v with %d conflicts\n", time.Since(start), conflicts.Load())
}

func runWorker(id int, conflicts *atomic.Int64) {
	client, err := filelog.Connect()
	if err != nil {
		fmt.Printf("[worker %d] connect error: %v\n", id, err)
		return
	}
	defer client.Close()

	next, err := client.NextID(logName)
	if err != nil {
		fmt.Printf("[worker %d] NEXTID error: %v\n", id, err)
		return
	}

	for written := 1; written <= entriesPerWorker; {
		payload := []byte(fmt.Sprintf("worker-%d-entry-%d", id, written))

		ok, expected, err := client.Put(logName, next, payload)
		if err != nil {
			fmt.Printf("[worker %d] PUT error: %v\n", id, err)
			return
		}

		// Another worker won; retry at the id the log expects now.
		next = expected
		if !ok {
			conflicts.Add(1)
			continue
		}

		if written%progressEvery == 0 {
			fmt.Printf("[worker %d] wrote %d entries\n", id, written)
		}
		written++
	}
}
