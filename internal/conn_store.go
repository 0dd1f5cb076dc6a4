package internal

import (
	"fmt"
	"sync"
	"sync/atomic"
)

type MissingConnIdError struct {
	Id uint32
}

func (e *MissingConnIdError) Error() string {
	return fmt.Sprintf("Missing connection with id=%d", e.Id)
}

type TooManyConnectionsError struct {
	Limit int
}

func (e *TooManyConnectionsError) Error() string {
	return fmt.Sprintf("Too many open connections (limit %d) - cannot accept new connection", e.Limit)
}

type ConnMetadata struct {
	Mut             sync.RWMutex
	TransportName   string
	RemoteLabel     string
	CreatedTime     int64
	LastRequestTime int64
	RequestCount    uint64
}

// ConnStore tracks every open consensus engine connection across all
// transports: id allocation, bookkeeping for logs, and the global open
// connection cap.
type ConnStore struct {
	MaxConnections int

	nextConnId atomic.Uint32

	mut_connections sync.RWMutex
	connections     map[uint32]*ConnMetadata
}

func CreateConnStore(maxConnections int) *ConnStore {
	return &ConnStore{
		MaxConnections:  maxConnections,
		nextConnId:      atomic.Uint32{},
		mut_connections: sync.RWMutex{},
		connections:     make(map[uint32]*ConnMetadata),
	}
}

// Register allocates an id for a newly accepted connection, enforcing the
// open connection cap when MaxConnections > 0.
func (store *ConnStore) Register(transportName string, remoteLabel string, timestamp int64) (uint32, error) {
	store.mut_connections.Lock()
	defer store.mut_connections.Unlock()

	if store.MaxConnections > 0 && len(store.connections) >= store.MaxConnections {
		return 0, &TooManyConnectionsError{Limit: store.MaxConnections}
	}

	connId := store.nextConnId.Add(1)
	store.connections[connId] = &ConnMetadata{
		Mut:             sync.RWMutex{},
		TransportName:   transportName,
		RemoteLabel:     remoteLabel,
		CreatedTime:     timestamp,
		LastRequestTime: timestamp,
	}

	return connId, nil
}

func (store *ConnStore) Remove(connId uint32) {
	store.mut_connections.Lock()
	defer store.mut_connections.Unlock()
	delete(store.connections, connId)
}

func (store *ConnStore) Count() int {
	store.mut_connections.RLock()
	defer store.mut_connections.RUnlock()
	return len(store.connections)
}

func (store *ConnStore) HasConn(connId uint32) bool {
	store.mut_connections.RLock()
	defer store.mut_connections.RUnlock()

	_, has := store.connections[connId]
	return has
}

// RecordRequest bumps the request counter for a connection and stamps the
// time of its most recent request.
func (store *ConnStore) RecordRequest(connId uint32, timestamp int64) error {
	store.mut_connections.RLock()
	defer store.mut_connections.RUnlock()

	connection, has := store.connections[connId]
	if !has {
		return &MissingConnIdError{Id: connId}
	}

	connection.Mut.Lock()
	defer connection.Mut.Unlock()

	connection.LastRequestTime = timestamp
	connection.RequestCount++
	return nil
}

func (store *ConnStore) GetRequestCount(connId uint32) (uint64, error) {
	store.mut_connections.RLock()
	defer store.mut_connections.RUnlock()

	connection, has := store.connections[connId]
	if !has {
		return 0, &MissingConnIdError{Id: connId}
	}

	connection.Mut.RLock()
	defer connection.Mut.RUnlock()

	return connection.RequestCount, nil
}
