package hdf5

// WalkFunc is called for each object during Walk. obj is a *Group or a
// *Dataset, or nil when err reports why the object could not be opened.
// Returning an error stops the walk.
type WalkFunc func(path string, obj any, err error) error

// Walk visits g and everything below it in name order, groups before
// their members. A group reachable by more than one link is descended
// into once.
//
//	hdf5.Walk(f.Root(), func(path string, obj any, err error) error {
//		if ds, ok := obj.(*hdf5.Dataset); ok {
//			fmt.Println(path, ds.Shape())
//		}
//		return err
//	})
func Walk(g *Group, fn WalkFunc) error {
	return walkGroup(g, fn, map[uint64]bool{})
}

func walkGroup(g *Group, fn WalkFunc, seen map[uint64]bool) error {
	seen[g.Address()] = true
	if err := fn(g.Path(), g, nil); err != nil {
		return err
	}
	members, err := g.Members()
	if err != nil {
		return fn(g.Path(), nil, err)
	}

	for _, name := range members {
		childPath := joinPath(g.Path(), name)
		hdr, _, err := g.lookup(name, newResolver())
		if err != nil {
			if err := fn(childPath, nil, err); err != nil {
				return err
			}
			continue
		}
		if !isDataset(hdr) {
			if seen[hdr.Address] {
				continue
			}
			child := &Group{file: g.file, path: childPath, header: hdr}
			if err := walkGroup(child, fn, seen); err != nil {
				return err
			}
			continue
		}
		ds, err := newDataset(g.file, childPath, hdr)
		if err != nil {
			ds = nil
		}
		if err := fn(childPath, datasetOrNil(ds), err); err != nil {
			return err
		}
	}
	return nil
}

// datasetOrNil keeps a nil *Dataset from turning into a non-nil any.
func datasetOrNil(ds *Dataset) any {
	if ds == nil {
		return nil
	}
	return ds
}
