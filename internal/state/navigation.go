package state

// Navigation queries work on the partial tree at any point of construction.
// They return NotFound when the walk leaves the tree and an error wrapping
// ErrInvalidArgument when the starting position is not a tree position.

// #region parent
// Parent applies the head function n times. The root has no parent.
func (s *State) Parent(index, n int) (int, error) {
	if err := s.checkIndex("Parent", index); err != nil {
		return 0, err
	}
	for ; n > 0; n-- {
		if index == Root {
			return NotFound, nil
		}
		index = s.head[index]
	}
	return index, nil
}

// #endregion parent

// #region children
// LeftmostChild descends n levels, taking the lowest-positioned child each
// time.
func (s *State) LeftmostChild(index, n int) (int, error) {
	if err := s.checkIndex("LeftmostChild", index); err != nil {
		return 0, err
	}
	for ; n > 0; n-- {
		found := NotFound
		for i := 0; i < len(s.head); i++ {
			if s.head[i] == index {
				found = i
				break
			}
		}
		if found == NotFound {
			return NotFound, nil
		}
		index = found
	}
	return index, nil
}

// RightmostChild descends n levels, taking the highest-positioned child each
// time.
func (s *State) RightmostChild(index, n int) (int, error) {
	if err := s.checkIndex("RightmostChild", index); err != nil {
		return 0, err
	}
	for ; n > 0; n-- {
		found := NotFound
		for i := len(s.head) - 1; i >= 0; i-- {
			if s.head[i] == index {
				found = i
				break
			}
		}
		if found == NotFound {
			return NotFound, nil
		}
		index = found
	}
	return index, nil
}

// #endregion children

// #region siblings
// LeftSibling returns the n-th token to the left of index sharing its head.
func (s *State) LeftSibling(index, n int) (int, error) {
	if err := s.checkIndex("LeftSibling", index); err != nil {
		return 0, err
	}
	if index == Root {
		if n > 0 {
			return NotFound, nil
		}
		return index, nil
	}
	parent := s.head[index]
	i := index
	for n > 0 {
		i--
		if i < 0 {
			return NotFound, nil
		}
		if s.head[i] == parent {
			n--
		}
	}
	return i, nil
}

// RightSibling returns the n-th token to the right of index sharing its head.
func (s *State) RightSibling(index, n int) (int, error) {
	if err := s.checkIndex("RightSibling", index); err != nil {
		return 0, err
	}
	if index == Root {
		if n > 0 {
			return NotFound, nil
		}
		return index, nil
	}
	parent := s.head[index]
	i := index
	for n > 0 {
		i++
		if i >= len(s.head) {
			return NotFound, nil
		}
		if s.head[i] == parent {
			n--
		}
	}
	return i, nil
}

// #endregion siblings
