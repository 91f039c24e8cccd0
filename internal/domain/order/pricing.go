package order

import "github.com/shopspring/decimal"

// PricingPolicy 计价策略
// 税率和运费是可替换的策略常量,不是促销引擎
type PricingPolicy struct {
	TaxRate       decimal.Decimal // 税率(0.08 = 8%)
	ShippingBase  decimal.Decimal // 基础运费
	ShippingPerKg decimal.Decimal // 每单位重量运费
}

// DefaultPricingPolicy 默认策略:8%税,运费5.00 + 2.00/kg
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		TaxRate:       decimal.RequireFromString("0.08"),
		ShippingBase:  decimal.RequireFromString("5.00"),
		ShippingPerKg: decimal.RequireFromString("2.00"),
	}
}

// PricedLine 参与计价的一行
type PricedLine struct {
	UnitPrice decimal.Decimal
	Quantity  int
	Weight    decimal.Decimal // 单件重量
}

// Quote 计价结果(均已四舍五入到分)
type Quote struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Quote 计算订单金额
// 教学要点:
// 1. 小计、税、运费各自用全精度计算,输出时Round(2)
// 2. decimal.Round对正数是四舍五入(half away from zero)
// 3. 总价 = 取整后的小计 + 税 + 运费 - 优惠,保证账单上的分项加起来等于总价
func (p PricingPolicy) Quote(lines []PricedLine) Quote {
	subtotal := decimal.Zero
	weight := decimal.Zero
	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		subtotal = subtotal.Add(line.UnitPrice.Mul(qty))
		weight = weight.Add(line.Weight.Mul(qty))
	}

	tax := subtotal.Mul(p.TaxRate)
	shipping := p.ShippingBase.Add(p.ShippingPerKg.Mul(weight))

	q := Quote{
		Subtotal: subtotal.Round(2),
		Tax:      tax.Round(2),
		Shipping: shipping.Round(2),
		Discount: decimal.Zero,
	}
	q.Total = q.Subtotal.Add(q.Tax).Add(q.Shipping).Sub(q.Discount)
	return q
}
