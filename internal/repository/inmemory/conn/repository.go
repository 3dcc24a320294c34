package conn

import (
	"errors"
	"sync"

	"github.com/obslab/server/pkg/wsrouter"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// repo keeps the bidirectional mapping between live websocket
// connections and coder ids. It is the only process-local state shared
// between handlers, so it carries its own lock.
type repo struct {
	connList map[*wsrouter.Conn]string
	idList   map[string]*wsrouter.Conn
	mu       sync.RWMutex
}

func NewRepo() *repo {
	return &repo{
		connList: make(map[*wsrouter.Conn]string),
		idList:   make(map[string]*wsrouter.Conn),
	}
}

func (r *repo) Add(conn *wsrouter.Conn, coderId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connList[conn] != "" || r.idList[coderId] != nil {
		return ErrAlreadyExists
	}

	r.connList[conn] = coderId
	r.idList[coderId] = conn

	return nil
}

func (r *repo) RemoveByConn(conn *wsrouter.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	coderId, ok := r.connList[conn]
	if !ok {
		return ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.idList, coderId)

	return nil
}

func (r *repo) RemoveByCoderId(coderId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.idList[coderId]
	if !ok {
		return ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.idList, coderId)

	return nil
}

func (r *repo) GetConn(coderId string) (*wsrouter.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.idList[coderId]
	if !ok {
		return nil, ErrNotFound
	}

	return conn, nil
}

func (r *repo) GetCoderId(conn *wsrouter.Conn) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	coderId, ok := r.connList[conn]
	if !ok {
		return "", ErrNotFound
	}

	return coderId, nil
}
