// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

/*
Package pipeline is the capture ingestion loop.

Each capture goes through the same states:

	Received -> Normalized -> StateEvaluated -> (Reset | Appended | Unchanged) -> Synced -> Acknowledged

Processor.Process runs the per-event state machine and Loop drives it,
pulling exactly one capture at a time from the queue.

Steps for one capture:

 1. Archive the raw frame (timestamped path and latest).
 2. Run object detection. An absent prediction acknowledges the event as
    Skipped; a transport error leaves it for redelivery.
 3. Start the annotation side task: render boxes, labels and the timestamp
    and archive the result. It is joined before the event is acknowledged
    and its error fails the event.
 4. Normalize detections and compare with the last history entry:
    unchanged carts do nothing beyond finishing a pending sync, emptied carts
    reset history to [[]] and show the welcome placeholder, changed carts
    append to history and ask the recommendation engine.
 5. Record the display state as unsynced, point the device registry at the
    display reference, then mark the state synced.

Every step is idempotent under redelivery: history never gains a duplicate
consecutive entry and the registry is written only when the reference
changes. A failed sync stays recorded as unsynced, so a redelivered capture
of the same cart finishes it.
*/
package pipeline
