// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rates

// Recorder receives engine events for instrumentation.
type Recorder interface {
	PageLoaded(kind Kind, inserted int)
	PageFailed(kind Kind)
	Mutation(operation Operation, ok bool)
	CountSync(ok bool)
	SessionOpened()
	SessionClosed()
}

// NopRecorder discards every event.
type NopRecorder struct{}

func (NopRecorder) PageLoaded(Kind, int)     {}
func (NopRecorder) PageFailed(Kind)          {}
func (NopRecorder) Mutation(Operation, bool) {}
func (NopRecorder) CountSync(bool)           {}
func (NopRecorder) SessionOpened()           {}
func (NopRecorder) SessionClosed()           {}
