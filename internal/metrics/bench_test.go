package metrics

import "testing"

// BenchmarkCollector_FrameSent measures the overhead of recording an
// outbound frame (atomic operations).
func BenchmarkCollector_FrameSent(b *testing.B) {
	c := New("bench")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.FrameSent(64)
	}
}

// BenchmarkCollector_ReplyReceived measures classification plus counter cost.
func BenchmarkCollector_ReplyReceived(b *testing.B) {
	c := New("bench")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.ReplyReceived("250 OK")
	}
}

// BenchmarkCollector_Snapshot measures the cost of taking a snapshot.
func BenchmarkCollector_Snapshot(b *testing.B) {
	c := New("bench")
	c.FrameSent(1024)
	c.RecordError("test")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Snapshot()
	}
}
