package machetli

// sliceStream adapts a pre-computed slice of successors to the
// SuccessorStream interface. It is useful for generators whose successors
// are cheap to enumerate eagerly and for tests.
type sliceStream struct {
	successors []Successor
	pos        int
}

// NewSliceStream returns a SuccessorStream that yields successors in slice
// order and then terminates. Nothing is held beyond the slice itself, so
// Close releases nothing; it only marks the stream exhausted, after which
// Next reports ok=false.
func NewSliceStream(successors []Successor) SuccessorStream {
	return &sliceStream{successors: successors}
}

func (s *sliceStream) Next() (Successor, bool, error) {
	if s.pos >= len(s.successors) {
		return Successor{}, false, nil
	}
	succ := s.successors[s.pos]
	s.pos++
	return succ, true, nil
}

func (s *sliceStream) Close() error {
	s.pos = len(s.successors)
	return nil
}

// nextBatch pulls up to n successors from stream. It returns fewer than n
// only when the stream is exhausted first (the last batch of a generator's
// output may be partial). A nil/empty return with a nil error means the
// stream had nothing left to offer.
func nextBatch(stream SuccessorStream, n int) (Batch, error) {
	if n <= 0 {
		n = 1
	}
	batch := make(Batch, 0, n)
	for len(batch) < n {
		succ, ok, err := stream.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		batch = append(batch, succ)
	}
	return batch, nil
}
