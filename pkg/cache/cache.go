// Package cache provides a weight bounded, least recently used key-value
// store.
package cache

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ErrWeightExceedsBudget = errors.New("item weight exceeds cache budget")

// Cache is a weighted LRU cache. When an insert pushes the total weight over
// the budget, the least recently used items are evicted.
type Cache interface {
	// SetVerbose enables debug logging of evictions
	SetVerbose(verbose bool)

	// GetWeight returns the current total weight of items in the cache
	GetWeight() int

	// GetBudget returns the weight budget of the cache
	GetBudget() int

	// Insert adds or replaces an item. A replaced item becomes the most
	// recently used one.
	Insert(key string, value interface{}, weight int) error

	// Retrieve fetches an item and marks it as recently used
	Retrieve(key string) (interface{}, bool)

	// Delete removes an item, reporting whether it was present
	Delete(key string) bool

	// Len returns the number of items in the cache
	Len() int

	// Clear removes every item
	Clear()
}

type cacheNode struct {
	next   *cacheNode
	prev   *cacheNode
	key    string
	value  interface{}
	weight int
}

type cache struct {
	log *logrus.Entry

	mu      sync.Mutex
	head    *cacheNode
	tail    *cacheNode
	lookup  map[string]*cacheNode
	weight  int
	budget  int
	verbose bool
}

// NewCache returns a new cache with a given weight budget.
func NewCache(budget int) Cache {
	return &cache{
		log:    logrus.StandardLogger().WithField("type", "cache/lru"),
		lookup: make(map[string]*cacheNode),
		budget: budget,
	}
}

func (c *cache) SetVerbose(verbose bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.verbose = verbose
}

func (c *cache) GetWeight() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.weight
}

func (c *cache) GetBudget() int {
	return c.budget
}

func (c *cache) Insert(key string, value interface{}, weight int) error {
	if weight < 0 {
		return errors.Errorf("invalid item weight: %d", weight)
	}
	if weight > c.budget {
		return ErrWeightExceedsBudget
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, found := c.lookup[key]; found {
		c.unlink(existing)
	}

	node := &cacheNode{
		key:    key,
		value:  value,
		weight: weight,
	}
	c.pushFront(node)

	for c.weight > c.budget && c.tail != nil {
		evicted := c.tail
		c.unlink(evicted)

		if c.verbose {
			c.log.WithFields(logrus.Fields{
				"key":          evicted.key,
				"weight":       evicted.weight,
				"spare_weight": c.budget - c.weight,
			}).Debug("evicted cache item")
		}
	}

	return nil
}

func (c *cache) Retrieve(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, found := c.lookup[key]
	if !found {
		return nil, false
	}

	if node != c.head {
		c.unlink(node)
		c.pushFront(node)
	}

	return node.value, true
}

func (c *cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, found := c.lookup[key]
	if !found {
		return false
	}

	c.unlink(node)
	return true
}

func (c *cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.lookup)
}

func (c *cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.head = nil
	c.tail = nil
	c.lookup = make(map[string]*cacheNode)
	c.weight = 0
}

// pushFront links node at the head of the list. c.mu must be held.
func (c *cache) pushFront(node *cacheNode) {
	node.prev = nil
	node.next = c.head
	if c.head != nil {
		c.head.prev = node
	}
	c.head = node
	if c.tail == nil {
		c.tail = node
	}

	c.lookup[node.key] = node
	c.weight += node.weight
}

// unlink removes node from the list and the lookup map. c.mu must be held.
func (c *cache) unlink(node *cacheNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
	node.next = nil
	node.prev = nil

	delete(c.lookup, node.key)
	c.weight -= node.weight
}
