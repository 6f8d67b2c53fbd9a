package pool

import (
	"bytes"
	"sync"
)

// defaultFloatCapacity начальная емкость буферов значений
const defaultFloatCapacity = 1024

// maxRetainedCapacity буферы больше этого размера не возвращаются в пул
const maxRetainedCapacity = 1 << 20

// ObjectPools содержит пулы буферов для переиспользования при расчетах
type ObjectPools struct {
	floatSlicePool sync.Pool
	bufferPool     sync.Pool
}

// Global пулы объектов
var Global = &ObjectPools{
	floatSlicePool: sync.Pool{
		New: func() interface{} {
			s := make([]float64, 0, defaultFloatCapacity)
			return &s
		},
	},
	bufferPool: sync.Pool{
		New: func() interface{} {
			return new(bytes.Buffer)
		},
	},
}

// GetFloats получает пустой буфер float64 из пула
func (p *ObjectPools) GetFloats() *[]float64 {
	s := p.floatSlicePool.Get().(*[]float64)
	*s = (*s)[:0]
	return s
}

// PutFloats возвращает буфер float64 в пул
func (p *ObjectPools) PutFloats(s *[]float64) {
	if s == nil || cap(*s) > maxRetainedCapacity {
		return
	}
	*s = (*s)[:0]
	p.floatSlicePool.Put(s)
}

// GetBuffer получает очищенный bytes.Buffer из пула
func (p *ObjectPools) GetBuffer() *bytes.Buffer {
	buf := p.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer возвращает bytes.Buffer в пул
func (p *ObjectPools) PutBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxRetainedCapacity {
		return
	}
	buf.Reset()
	p.bufferPool.Put(buf)
}
