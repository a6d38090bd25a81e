package config

import (
	"fmt"
	"strconv"
	"sync"
)

// GlobalOption 运行期可调整的配置项，键值同步写入 options 表
var GlobalOption = NewOptionManager()

type optionEntry struct {
	get func() string
	set func(string) error
}

type OptionManager struct {
	mu      sync.RWMutex
	options map[string]*optionEntry
}

func NewOptionManager() *OptionManager {
	return &OptionManager{options: make(map[string]*optionEntry)}
}

func (m *OptionManager) register(key string, entry *optionEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.options[key] = entry
}

func (m *OptionManager) RegisterBool(key string, ptr *bool) {
	m.register(key, &optionEntry{
		get: func() string { return strconv.FormatBool(*ptr) },
		set: func(value string) error {
			*ptr = value == "true"
			return nil
		},
	})
}

func (m *OptionManager) RegisterInt(key string, ptr *int) {
	m.register(key, &optionEntry{
		get: func() string { return strconv.Itoa(*ptr) },
		set: func(value string) error {
			v, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("option %s expects an integer: %w", key, err)
			}
			*ptr = v
			return nil
		},
	})
}

func (m *OptionManager) RegisterString(key string, ptr *string) {
	m.register(key, &optionEntry{
		get: func() string { return *ptr },
		set: func(value string) error {
			*ptr = value
			return nil
		},
	})
}

func (m *OptionManager) RegisterCustom(key string, get func() string, set func(string) error, defaultValue string) {
	m.register(key, &optionEntry{get: get, set: set})
	if defaultValue != "" {
		_ = set(defaultValue)
	}
}

// RegisterValue 注册纯文本配置项（无对应的全局变量）
func (m *OptionManager) RegisterValue(key string) {
	var value string
	m.RegisterString(key, &value)
}

func (m *OptionManager) Set(key, value string) error {
	m.mu.RLock()
	entry, ok := m.options[key]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown option: %s", key)
	}
	return entry.set(value)
}

func (m *OptionManager) Get(key string) (string, bool) {
	m.mu.RLock()
	entry, ok := m.options[key]
	m.mu.RUnlock()
	if !ok {
		return "", false
	}
	return entry.get(), true
}

func (m *OptionManager) GetAll() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make(map[string]string, len(m.options))
	for key, entry := range m.options {
		all[key] = entry.get()
	}
	return all
}
