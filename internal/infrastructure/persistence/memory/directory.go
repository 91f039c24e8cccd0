package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/storefront/internal/domain/catalog"
	"github.com/xiebiao/storefront/internal/domain/user"
)

// Catalog 内存商品目录
// Put/SetPrice/SetActive模拟目录服务侧的变更
type Catalog struct {
	mu       sync.RWMutex
	products map[uint]catalog.Product
}

// NewCatalog 创建内存商品目录
func NewCatalog() *Catalog {
	return &Catalog{products: make(map[uint]catalog.Product)}
}

var _ catalog.Catalog = (*Catalog)(nil)

// Put 新增或覆盖商品
func (c *Catalog) Put(p catalog.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

// SetPrice 改价
func (c *Catalog) SetPrice(id uint, price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.products[id]; ok {
		p.Price = price
		c.products[id] = p
	}
}

// SetActive 上下架
func (c *Catalog) SetActive(id uint, active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.products[id]; ok {
		p.IsActive = active
		c.products[id] = p
	}
}

func (c *Catalog) GetByID(ctx context.Context, id uint) (*catalog.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return &p, nil
}

func (c *Catalog) GetByIDs(ctx context.Context, ids []uint) (map[uint]*catalog.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make(map[uint]*catalog.Product, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			copied := p
			result[id] = &copied
		}
	}
	return result, nil
}

// Directory 内存用户目录
type Directory struct {
	mu    sync.RWMutex
	users map[uint]user.User
}

// NewDirectory 创建内存用户目录
func NewDirectory() *Directory {
	return &Directory{users: make(map[uint]user.User)}
}

var _ user.Directory = (*Directory)(nil)

// Put 新增或覆盖用户
func (d *Directory) Put(u user.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *Directory) GetByID(ctx context.Context, id uint) (*user.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &u, nil
}
