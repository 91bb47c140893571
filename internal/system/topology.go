package system

import (
	"sort"

	"github.com/tklauser/numcpus"
)

// Topology enumerates processor ids from the kernel's cpu masks.
type Topology struct{}

func (Topology) Possible() ([]int, error) {
	ids, err := numcpus.ListPossible()
	if err != nil {
		return nil, err
	}
	sort.Ints(ids)
	return ids, nil
}

func (Topology) Online() ([]int, error) {
	ids, err := numcpus.ListOnline()
	if err != nil {
		return nil, err
	}
	sort.Ints(ids)
	return ids, nil
}

// OnlineCount is the number of online processors, used to size the
// accounting tables at startup.
func (t Topology) OnlineCount() (int, error) {
	return numcpus.GetOnline()
}
