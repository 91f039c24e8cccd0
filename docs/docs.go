// Package docs Swagger文档
//
// 由 `swag init -g cmd/api/main.go -o docs` 根据handler上的注解重新生成;
// 这里保留的是概要版本,接口变化后请重新生成
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/checkout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["订单模块"],
                "summary": "结账",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.CheckoutRequest"}}],
                "responses": {"201": {"description": "下单成功"}, "409": {"description": "库存不足或购物车校验失败"}}
            }
        },
        "/cart": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["购物车"], "summary": "查看购物车", "responses": {"200": {"description": "OK"}}}
        },
        "/cart/items": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["购物车"],
                "summary": "加入购物车",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.AddCartItemRequest"}}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/cart/validate": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["购物车"], "summary": "结账前校验购物车", "responses": {"200": {"description": "OK"}}}
        },
        "/cart/sync": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["购物车"], "summary": "同步购物车", "responses": {"200": {"description": "OK"}}}
        },
        "/orders": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["订单模块"], "summary": "我的订单列表", "responses": {"200": {"description": "OK"}}}
        },
        "/orders/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["订单模块"],
                "summary": "订单详情",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "订单不存在"}}
            }
        },
        "/orders/{id}/cancel": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["订单模块"],
                "summary": "取消订单",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "当前状态不可取消"}}
            }
        },
        "/payments/callback": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["支付"], "summary": "支付结果回调", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/orders": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["管理后台"],
                "summary": "按状态查询订单",
                "parameters": [{"type": "string", "name": "status", "in": "query", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "未知的订单状态"}}
            }
        },
        "/admin/orders/no/{order_no}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["管理后台"],
                "summary": "按订单号查询订单",
                "parameters": [{"type": "string", "name": "order_no", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "订单不存在"}}
            }
        },
        "/admin/orders/{id}/status": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["管理后台"],
                "summary": "修改订单状态",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "非法的状态流转"}}
            }
        },
        "/admin/inventory/{product_id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["库存管理"], "summary": "查询商品库存", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["库存管理"], "summary": "为商品建立库存记录", "responses": {"201": {"description": "Created"}}}
        },
        "/admin/inventory/{product_id}/stock": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["库存管理"], "summary": "补货", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["库存管理"], "summary": "盘点(设置实物库存)", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/inventory/low-stock": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["库存管理"], "summary": "低库存商品", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/inventory/out-of-stock": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["库存管理"], "summary": "无货商品", "responses": {"200": {"description": "OK"}}}
        }
    },
    "definitions": {
        "dto.CheckoutRequest": {
            "type": "object",
            "required": ["shipping_address"],
            "properties": {
                "shipping_address": {"type": "string"},
                "payment_method": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "dto.AddCartItemRequest": {
            "type": "object",
            "required": ["product_id", "quantity"],
            "properties": {
                "product_id": {"type": "integer"},
                "quantity": {"type": "integer", "minimum": 1, "maximum": 999}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Storefront API",
	Description:      "结账与库存预留服务",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
