package main

import "marketplace_v1_202610/internal/cmd"

// @title 电子产品批发市场 API
// @version 1.0
// @description 经销商价目表导入、统一目录、购物车与订单
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cmd.Execute()
}
