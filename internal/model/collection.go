package model

// Collection — набор задач одного пакета. Все операции возвращают новый
// срез и не изменяют исходный, поэтому читатель, получивший коллекцию,
// всегда видит согласованный снимок.
type Collection []Task

// Find возвращает задачу по ID.
func (c Collection) Find(id string) (Task, bool) {
	for _, t := range c {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Replace возвращает копию коллекции, в которой запись с тем же ID заменена
// на updated. Если ID не найден, возвращается исходная коллекция и false.
func (c Collection) Replace(updated Task) (Collection, bool) {
	for i, t := range c {
		if t.ID != updated.ID {
			continue
		}
		next := make(Collection, len(c))
		copy(next, c)
		next[i] = updated
		return next, true
	}
	return c, false
}

// Map applies fn to every task and returns the results as a new collection.
func (c Collection) Map(fn func(Task) Task) Collection {
	next := make(Collection, len(c))
	for i, t := range c {
		next[i] = fn(t)
	}
	return next
}

// Eligible returns IDs of tasks that are pending and selected, in order.
func (c Collection) Eligible() []string {
	var ids []string
	for _, t := range c {
		if t.Eligible() {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// Stripped returns a copy without payloads, suitable for listings.
func (c Collection) Stripped() Collection {
	return c.Map(Task.Strip)
}
