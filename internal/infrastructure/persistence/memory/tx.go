// Package memory 内存持久化实现
//
// 与MySQL实现满足同样的仓储接口，用于单元测试和 database.driver=memory 的单机演示。
//
// 并发与事务模型（模拟InnoDB行锁）：
//  1. 没有全局锁。库存按商品加锁，订单按行加锁（FindByIDForUpdate）
//  2. 事务内拿到的行锁持有到事务结束，同一事务重复加锁不阻塞；事务外加锁用完即放
//  3. 事务内的每次写入登记一个"反向操作"，fn返回错误时在仍持有行锁的情况下逆序执行，
//     效果等同于数据库ROLLBACK
//  4. 嵌套调用Transaction时加入外层事务（与GORM的SavePoint不同，内层失败会随外层一起回滚）
//
// 多行加锁的调用方按固定顺序加锁（先订单行，再按商品ID升序），避免死锁。
package memory

import (
	"context"
	"sync"
)

type txKey struct{}

// journal 一个事务持有的行锁和登记的反向操作
type journal struct {
	undo []func()
	held map[*sync.Mutex]struct{}
	// order 记录加锁顺序，事务结束时逆序释放
	order []*sync.Mutex
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

func (j *journal) unlockAll() {
	for i := len(j.order) - 1; i >= 0; i-- {
		j.order[i].Unlock()
	}
	j.order = nil
	j.held = nil
}

// TxManager 内存事务管理器
type TxManager struct{}

// NewTxManager 创建内存事务管理器
func NewTxManager() *TxManager {
	return &TxManager{}
}

// Transaction 执行事务，fn返回错误（或panic）时撤销其中的全部写入
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*journal); ok {
		return fn(ctx)
	}

	j := &journal{held: make(map[*sync.Mutex]struct{})}
	defer j.unlockAll()
	defer func() {
		if r := recover(); r != nil {
			j.rollback()
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, j)); err != nil {
		j.rollback()
		return err
	}
	return nil
}

// lockRow 获取行锁
// 在事务中：锁登记到事务，事务结束才释放，返回的unlock是空操作
// 不在事务中：返回mu.Unlock，由调用方立即释放
func lockRow(ctx context.Context, mu *sync.Mutex) (unlock func()) {
	j, ok := ctx.Value(txKey{}).(*journal)
	if !ok {
		mu.Lock()
		return mu.Unlock
	}
	if _, held := j.held[mu]; !held {
		mu.Lock()
		j.held[mu] = struct{}{}
		j.order = append(j.order, mu)
	}
	return func() {}
}

// heldByTx 当前事务是否已持有该行锁
func heldByTx(ctx context.Context, mu *sync.Mutex) bool {
	j, ok := ctx.Value(txKey{}).(*journal)
	if !ok {
		return false
	}
	_, held := j.held[mu]
	return held
}

// onRollback 在当前事务中登记反向操作；不在事务中则忽略
// 反向操作执行时事务仍持有全部行锁，不能再对这些行加锁
func onRollback(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(txKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}
