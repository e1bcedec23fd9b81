// Package pool предоставляет обобщённый пул объектов T, ограниченных Reset().
// Пример использования:
//
//	reqPool := pool.New[*Request](func() *Request { return &Request{} }, 8)
//	req := reqPool.Get()
//	// использовать req
//	reqPool.Put(req)
package pool

import (
	"sync"
)

// Resettable ограничивает тип тем, у кого есть метод Reset()
type Resettable interface {
	Reset()
}

// Pool хранит объекты типа T, ограниченных Resettable.
// T обычно является указателем на структуру, например *Request.
type Pool[T Resettable] struct {
	mu      sync.Mutex
	items   []T
	maxIdle int
	Factory func() T
}

// New создаёт новый Pool[T]. Фабрика должна возвращать новый экземпляр T.
// maxIdle ограничивает число простаивающих объектов; 0 снимает ограничение.
func New[T Resettable](factory func() T, maxIdle int) *Pool[T] {
	return &Pool[T]{Factory: factory, maxIdle: maxIdle}
}

// Get возвращает объект из пула. Если пул пуст, создаёт новый через фабрику.
func (p *Pool[T]) Get() T {
	p.mu.Lock()
	n := len(p.items)
	if n > 0 {
		v := p.items[n-1]
		p.items = p.items[:n-1]
		p.mu.Unlock()
		return v
	}
	p.mu.Unlock()

	if p.Factory != nil {
		return p.Factory()
	}
	var zero T
	return zero
}

// Put возвращает объект обратно в пул после вызова Reset().
// Лишние объекты сверх maxIdle отбрасываются.
func (p *Pool[T]) Put(v T) {
	v.Reset()

	p.mu.Lock()
	if p.maxIdle == 0 || len(p.items) < p.maxIdle {
		p.items = append(p.items, v)
	}
	p.mu.Unlock()
}

// Idle возвращает число объектов, ожидающих в пуле.
func (p *Pool[T]) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}
