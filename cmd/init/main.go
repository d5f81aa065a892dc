package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"toll-backend/infra"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v3"
)

type Config struct {
	MongoDB struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongodb"`
}

func main() {
	// 讀取配置 - 自動尋找配置檔位置
	configPaths := []string{
		"config.yml",       // 當前目錄
		"../config.yml",    // 上層目錄
		"../../config.yml", // 上上層目錄 (cmd/init -> 專案根目錄)
	}

	var configData []byte
	var err error
	var usedPath string

	for _, path := range configPaths {
		configData, err = os.ReadFile(path)
		if err == nil {
			usedPath = path
			break
		}
	}

	if err != nil {
		log.Fatalf("❌ 無法找到 config.yml 配置檔，已嘗試路徑: %v", configPaths)
	}

	fmt.Printf("✅ 找到配置檔: %s\n", usedPath)

	var cfg Config
	if err := yaml.Unmarshal(configData, &cfg); err != nil {
		log.Fatalf("❌ 解析 config.yml 失敗: %v", err)
	}

	// 連接 MongoDB
	mongoConfig := infra.MongoConfig{
		URI:      cfg.MongoDB.URI,
		Database: cfg.MongoDB.Database,
	}
	mongoDB, err := infra.NewMongoDB(mongoConfig)
	if err != nil {
		log.Fatalf("❌ 連接 MongoDB 失敗: %v", err)
	}
	defer mongoDB.Close(context.Background())

	ctx := context.Background()

	fmt.Println("🚀 開始優化 MongoDB 索引...")
	fmt.Println("🎯 專為通行紀錄寫入與報表聚合優化，針對以下場景：")
	fmt.Println("   • 各城市每小時金額總計的時間範圍掃描")
	fmt.Println("   • 收費站月營收排行的月份範圍掃描")
	fmt.Println("   • 單一收費站車種分佈的點查詢")
	fmt.Println()

	// 創建索引
	if err := createOptimizedIndexes(ctx, mongoDB); err != nil {
		log.Fatalf("❌ 創建索引失敗: %v", err)
	}

	// 顯示索引創建結果
	if err := printIndexInfo(ctx, mongoDB); err != nil {
		fmt.Printf("⚠️  顯示索引資訊失敗: %v\n", err)
	}

	fmt.Println("✅ 索引優化完成！報表聚合速度將顯著提升")
}

// createOptimizedIndexes 創建針對聚合查詢優化的索引
func createOptimizedIndexes(ctx context.Context, mongoDB *infra.MongoDB) error {
	fmt.Println("📝 創建核心索引...")

	// ==================== TOLL_USAGES 集合索引 ====================
	usagesCollection := mongoDB.GetCollection(infra.CollectionTollUsages)
	fmt.Println("🎯 優化 toll_usages 集合...")

	usageIndexes := []mongo.IndexModel{
		// 【時間範圍掃描】- 每小時總計與月營收排行的 $match 階段
		{
			Keys: bson.D{
				{Key: "usage_date_time", Value: 1},
			},
			Options: options.Index().SetName("usage_time_range"),
		},

		// 【收費站點查詢】- 車種分佈報表的收費站 + 時間範圍過濾
		{
			Keys: bson.D{
				{Key: "toll_booth", Value: 1},
				{Key: "usage_date_time", Value: 1},
			},
			Options: options.Index().SetName("tollbooth_time_query"),
		},

		// 【城市分組掃描】- 覆蓋每小時總計的城市分組
		{
			Keys: bson.D{
				{Key: "city", Value: 1},
				{Key: "usage_date_time", Value: 1},
			},
			Options: options.Index().SetName("city_time_query"),
		},
	}

	if err := createIndexesSafely(ctx, usagesCollection, usageIndexes, infra.CollectionTollUsages); err != nil {
		return err
	}

	// ==================== TOLL_REPORTS 集合索引 ====================
	reportsCollection := mongoDB.GetCollection(infra.CollectionTollReports)
	fmt.Println("🎯 優化 toll_reports 集合...")

	reportIndexes := []mongo.IndexModel{
		// 【報表查詢】- 依種類與產生時間讀取最新報表
		{
			Keys: bson.D{
				{Key: "report_type", Value: 1},
				{Key: "generated_at", Value: -1},
			},
			Options: options.Index().SetName("report_type_time_query"),
		},
	}

	return createIndexesSafely(ctx, reportsCollection, reportIndexes, infra.CollectionTollReports)
}

// createIndexesSafely 逐一創建索引，已存在的索引不視為錯誤
func createIndexesSafely(ctx context.Context, collection *mongo.Collection, indexes []mongo.IndexModel, collectionName string) error {
	for _, index := range indexes {
		_, err := collection.Indexes().CreateOne(ctx, index)
		if err != nil {
			if strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "IndexOptionsConflict") {
				fmt.Printf("   ⏭️  %s: 索引已存在，跳過\n", collectionName)
				continue
			}
			return fmt.Errorf("%s 索引創建失敗: %w", collectionName, err)
		}
	}
	fmt.Printf("   ✅ %s: %d 個索引已就緒\n", collectionName, len(indexes))
	return nil
}

// printIndexInfo 顯示各集合的索引資訊
func printIndexInfo(ctx context.Context, mongoDB *infra.MongoDB) error {
	collections := []string{infra.CollectionTollUsages, infra.CollectionTollReports}

	fmt.Println("\n📊 索引創建報告:")
	fmt.Println(strings.Repeat("=", 60))

	for _, collName := range collections {
		collection := mongoDB.GetCollection(collName)
		cursor, err := collection.Indexes().List(ctx)
		if err != nil {
			continue // 集合可能不存在
		}

		var indexes []bson.M
		if err := cursor.All(ctx, &indexes); err != nil {
			continue
		}

		if len(indexes) > 0 {
			fmt.Printf("📁 %s: %d 個索引\n", collName, len(indexes))
			for i, index := range indexes {
				if name, ok := index["name"].(string); ok {
					if keys, ok := index["key"].(bson.M); ok {
						var keyStrs []string
						for key, direction := range keys {
							dir := "1"
							if d, ok := direction.(int32); ok && d == -1 {
								dir = "-1"
							}
							keyStrs = append(keyStrs, fmt.Sprintf("%s:%s", key, dir))
						}

						fmt.Printf("   %d. %s\n", i+1, name)
						fmt.Printf("      └─ %v\n", keyStrs)
					}
				}
			}
			fmt.Println()
		}
	}

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("🎯 關鍵優化說明:")
	fmt.Println("   • usage_time_range: 報表時間範圍掃描的基礎索引")
	fmt.Println("   • tollbooth_time_query: 車種分佈報表的收費站點查詢")
	fmt.Println("   • city_time_query: 每小時總計的城市 + 時間複合查詢")
	fmt.Println("   • report_type_time_query: 依種類讀取最新報表")
	fmt.Println(strings.Repeat("=", 60))

	return nil
}
