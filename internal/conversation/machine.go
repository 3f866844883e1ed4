// Package conversation реализует конечный автомат диалога поверх сессий чата.
package conversation

import (
	"fmt"

	"telegram-bot/internal/domain/entity"
)

// Machine описывает допустимые переходы между состояниями.
// Начальное состояние StateIdle, в него можно вернуться из любого состояния.
type Machine struct {
	transitions map[entity.State]map[entity.State]struct{}
}

// NewMachine создаёт автомат без переходов
func NewMachine() *Machine {
	return &Machine{transitions: make(map[entity.State]map[entity.State]struct{})}
}

// Allow разрешает переходы from -> to
func (m *Machine) Allow(from entity.State, to ...entity.State) *Machine {
	next, ok := m.transitions[from]
	if !ok {
		next = make(map[entity.State]struct{})
		m.transitions[from] = next
	}
	for _, s := range to {
		next[s] = struct{}{}
		if _, ok := m.transitions[s]; !ok {
			m.transitions[s] = make(map[entity.State]struct{})
		}
	}
	return m
}

// Known сообщает, объявлено ли состояние в автомате
func (m *Machine) Known(state entity.State) bool {
	if state == entity.StateIdle {
		return true
	}
	_, ok := m.transitions[state]
	return ok
}

// Can сообщает, допустим ли переход
func (m *Machine) Can(from, to entity.State) bool {
	if to == entity.StateIdle {
		return true
	}
	if from == to {
		return m.Known(to)
	}
	_, ok := m.transitions[from][to]
	return ok
}

// Transition переводит сессию в новое состояние. Переход в StateIdle очищает данные сессии.
func (m *Machine) Transition(s *entity.Session, to entity.State) error {
	if !m.Can(s.State, to) {
		return fmt.Errorf("%w: %s -> %s", entity.ErrInvalidTransition, s.State, to)
	}
	if to == entity.StateIdle {
		s.Reset()
		return nil
	}
	s.SetState(to)
	return nil
}
