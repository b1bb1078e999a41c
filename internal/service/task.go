package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/atinyakov/GophTodo/internal/derive"
	"github.com/atinyakov/GophTodo/internal/models"
)

// TaskService adds, marks, removes and lists todos, keeping the owning
// profile's counters in step.
type TaskService struct {
	core
}

// NewTaskService constructs a TaskService over store.
func NewTaskService(store RecordStore, deriver *derive.Deriver, opts ...Option) *TaskService {
	return &TaskService{core: newCore(store, deriver, opts)}
}

// AddTodo creates a todo at the profile's next index and increments both
// profile counters. Indices are handed out strictly in sequence and never reused.
func (s *TaskService) AddTodo(ctx context.Context, owner models.Identity, content string) (task TaskRef, profile ProfileRef, err error) {
	defer s.observe("add_todo", owner, time.Now(), &err)

	err = s.store.Update(ctx, func(tx models.RecordWriter) error {
		p, err := s.loadProfile(ctx, tx, owner)
		if err != nil {
			return err
		}
		index := p.Profile.NextIndex
		addr, bump, err := s.deriver.TaskAddress(owner, index)
		if err != nil {
			return fmt.Errorf("derive todo address: %w", err)
		}

		t := models.Task{Owner: owner, Index: index, Content: content}
		data, err := models.EncodeTask(t)
		if err != nil {
			return err
		}
		err = tx.Create(ctx, models.Record{Address: addr, Kind: models.KindTask, Owner: owner, Data: data}, owner)
		if errors.Is(err, models.ErrAddressInUse) {
			return fmt.Errorf("todo %d of %s: %w", index, owner, ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("create todo: %w", err)
		}

		if p.Profile.NextIndex, err = checkedIncrement(p.Profile.NextIndex, "next_index"); err != nil {
			return err
		}
		if p.Profile.TaskCount, err = checkedIncrement(p.Profile.TaskCount, "task_count"); err != nil {
			return err
		}
		if err := tx.Save(ctx, p.Address, models.EncodeProfile(p.Profile)); err != nil {
			return fmt.Errorf("save profile: %w", err)
		}

		task = TaskRef{Address: addr, Bump: bump, Task: t}
		profile = p
		return nil
	})
	if err != nil {
		return TaskRef{}, ProfileRef{}, err
	}
	return task, profile, nil
}

// MarkTodo sets completed on owner's todo at index. Marking twice fails with
// ErrAlreadyCompleted so double submissions surface to the client.
func (s *TaskService) MarkTodo(ctx context.Context, owner models.Identity, index uint8) (ref TaskRef, err error) {
	defer s.observe("mark_todo", owner, time.Now(), &err)

	err = s.store.Update(ctx, func(tx models.RecordWriter) error {
		t, err := s.loadTask(ctx, tx, owner, index)
		if err != nil {
			return err
		}
		if t.Task.Completed {
			return fmt.Errorf("todo %d of %s: %w", index, owner, ErrAlreadyCompleted)
		}
		t.Task.Completed = true
		data, err := models.EncodeTask(t.Task)
		if err != nil {
			return err
		}
		if err := tx.Save(ctx, t.Address, data); err != nil {
			return fmt.Errorf("save todo: %w", err)
		}
		ref = t
		return nil
	})
	if err != nil {
		return TaskRef{}, err
	}
	return ref, nil
}

// RemoveTodo closes owner's todo at index, refunding its storage to owner,
// and decrements task_count. next_index is left alone so the index stays retired.
func (s *TaskService) RemoveTodo(ctx context.Context, owner models.Identity, index uint8) (ref ProfileRef, err error) {
	defer s.observe("remove_todo", owner, time.Now(), &err)

	err = s.store.Update(ctx, func(tx models.RecordWriter) error {
		t, err := s.loadTask(ctx, tx, owner, index)
		if err != nil {
			return err
		}
		p, err := s.loadProfile(ctx, tx, owner)
		if err != nil {
			return err
		}
		if p.Profile.TaskCount == 0 {
			return fmt.Errorf("task_count of %s: %w", owner, ErrCounterUnderflow)
		}
		if err := tx.Close(ctx, t.Address, owner); err != nil {
			return fmt.Errorf("close todo: %w", err)
		}
		p.Profile.TaskCount--
		if err := tx.Save(ctx, p.Address, models.EncodeProfile(p.Profile)); err != nil {
			return fmt.Errorf("save profile: %w", err)
		}
		ref = p
		return nil
	})
	if err != nil {
		return ProfileRef{}, err
	}
	return ref, nil
}

// GetTodo returns owner's todo at index.
func (s *TaskService) GetTodo(ctx context.Context, owner models.Identity, index uint8) (ref TaskRef, err error) {
	defer s.observe("get_todo", owner, time.Now(), &err)

	err = s.store.View(ctx, func(tx models.RecordReader) error {
		var err error
		ref, err = s.loadTask(ctx, tx, owner, index)
		return err
	})
	if err != nil {
		return TaskRef{}, err
	}
	return ref, nil
}

// ListTodos returns owner's live todos ordered by index. A non-empty filter
// is a boolean expression over index, content and completed.
func (s *TaskService) ListTodos(ctx context.Context, owner models.Identity, filter string) (refs []TaskRef, err error) {
	defer s.observe("list_todos", owner, time.Now(), &err)

	match, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}

	err = s.store.View(ctx, func(tx models.RecordReader) error {
		if _, err := s.loadProfile(ctx, tx, owner); err != nil {
			return err
		}
		records, err := tx.ListByOwner(ctx, models.KindTask, owner)
		if err != nil {
			return fmt.Errorf("list todos: %w", err)
		}
		refs = make([]TaskRef, 0, len(records))
		for _, rec := range records {
			t, err := models.DecodeTask(rec.Data)
			if err != nil {
				return fmt.Errorf("todo %s: %w", rec.Address, err)
			}
			ok, err := match(t)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			_, bump, err := s.deriver.TaskAddress(owner, t.Index)
			if err != nil {
				return fmt.Errorf("derive todo address: %w", err)
			}
			refs = append(refs, TaskRef{Address: rec.Address, Bump: bump, Task: t})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Task.Index < refs[j].Task.Index })
	return refs, nil
}

func checkedIncrement(v uint8, counter string) (uint8, error) {
	if v == math.MaxUint8 {
		return v, fmt.Errorf("%s at %d: %w", counter, v, ErrCounterOverflow)
	}
	return v + 1, nil
}
