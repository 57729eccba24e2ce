/*
	Trailmark
	Copyright (c) 2013 Matthew Holt

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package app

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/timelinize/trailmark/activity"
)

// TrapSignals cancels the root context on the first interrupt or
// termination signal, so in-flight requests stop and the program
// exits after its deferred cleanup. A second interrupt quits the
// process immediately.
func TrapSignals(cancel context.CancelFunc) {
	trapSignalsCrossPlatform(cancel)
	trapSignalsPosix(cancel)
}

func trapSignalsCrossPlatform(cancel context.CancelFunc) {
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)

		for i := 0; true; i++ {
			<-sig

			if i > 0 {
				activity.Log.Warn("SIGINT: force quit")
				_ = activity.Log.Sync()
				os.Exit(2) //nolint:mnd
			}

			activity.Log.Warn("SIGINT: shutting down")
			shutdown(cancel)
		}
	}()
}

// shutdown cancels the pipeline once.
func shutdown(cancel context.CancelFunc) {
	if !atomic.CompareAndSwapInt32(shuttingDown, 0, 1) {
		return
	}
	cancel()
}

var shuttingDown = new(int32)
