package state

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Manager owns the in-memory copies of both state documents and serializes
// every mutation behind a single lock. Each mutation follows the same
// discipline: take the lock, compute the new snapshot, persist it in full,
// then publish it. The watcher and the command controller share one Manager
// so an admin edit mid-cycle is picked up by the next cycle's fresh read.
type Manager struct {
	mu       sync.Mutex
	store    Store
	settings Settings
	markers  Markers
	logger   *zap.Logger
}

// NewManager loads both documents from the store, falling back to defaults
// when the settings document does not exist yet.
func NewManager(store Store, defaultChannel string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	settings, ok, err := store.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		settings = DefaultSettings(defaultChannel)
	}
	if settings.IntervalMinutes < MinIntervalMinutes {
		settings.IntervalMinutes = DefaultIntervalMinutes
	}
	markers, err := store.LoadMarkers()
	if err != nil {
		return nil, fmt.Errorf("load markers: %w", err)
	}
	return &Manager{
		store:    store,
		settings: settings,
		markers:  markers,
		logger:   logger,
	}, nil
}

// Settings returns a copy of the current settings snapshot.
func (m *Manager) Settings() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Settings {
	out := m.settings
	out.Accounts = append([]string(nil), m.settings.Accounts...)
	return out
}

// Marker returns the last-delivered post id recorded for an account.
func (m *Manager) Marker(account string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.markers[CanonicalAccount(account)]
	return id, ok
}

// MarkerCount reports how many accounts have a recorded marker.
func (m *Manager) MarkerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.markers)
}

// SetMarker records the last-delivered post id for an account and persists
// the marker document before returning. The watcher calls this immediately
// after each delivery attempt.
func (m *Manager) SetMarker(account, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := make(Markers, len(m.markers)+1)
	for k, v := range m.markers {
		next[k] = v
	}
	next[CanonicalAccount(account)] = postID
	if err := m.store.SaveMarkers(next); err != nil {
		return fmt.Errorf("persist markers: %w", err)
	}
	m.markers = next
	return nil
}

// AddAccount canonicalizes the handle and adds it to the watch-list.
// The bool result is false when the account was already tracked, in which
// case state is unchanged.
func (m *Manager) AddAccount(raw string) (string, bool, error) {
	account := CanonicalAccount(raw)
	if account == "" || account == "@" {
		return "", false, fmt.Errorf("account handle is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.settings.Accounts {
		if existing == account {
			return account, false, nil
		}
	}
	next := m.snapshotLocked()
	next.Accounts = append(next.Accounts, account)
	if err := m.store.SaveSettings(next); err != nil {
		return account, false, fmt.Errorf("persist settings: %w", err)
	}
	m.settings = next
	return account, true, nil
}

// RemoveAccount drops the handle from the watch-list. The bool result is
// false when the account was not tracked.
func (m *Manager) RemoveAccount(raw string) (string, bool, error) {
	account := CanonicalAccount(raw)
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i, existing := range m.settings.Accounts {
		if existing == account {
			idx = i
			break
		}
	}
	if idx < 0 {
		return account, false, nil
	}
	next := m.snapshotLocked()
	next.Accounts = append(next.Accounts[:idx], next.Accounts[idx+1:]...)
	if err := m.store.SaveSettings(next); err != nil {
		return account, false, fmt.Errorf("persist settings: %w", err)
	}
	m.settings = next
	return account, true, nil
}

// SetChannel updates the destination channel.
func (m *Manager) SetChannel(channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.snapshotLocked()
	next.Channel = channel
	if err := m.store.SaveSettings(next); err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}
	m.settings = next
	return nil
}

// SetInterval updates the poll interval, clamping values below the minimum
// to MinIntervalMinutes. It returns the value actually stored.
func (m *Manager) SetInterval(minutes int) (int, error) {
	if minutes < MinIntervalMinutes {
		minutes = MinIntervalMinutes
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.snapshotLocked()
	next.IntervalMinutes = minutes
	if err := m.store.SaveSettings(next); err != nil {
		return 0, fmt.Errorf("persist settings: %w", err)
	}
	m.settings = next
	return minutes, nil
}

// SetPaused toggles the paused flag.
func (m *Manager) SetPaused(paused bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.snapshotLocked()
	next.Paused = paused
	if err := m.store.SaveSettings(next); err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}
	m.settings = next
	return nil
}
