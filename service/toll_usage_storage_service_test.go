package service

import (
	"testing"
	"toll-backend/model"

	"github.com/google/uuid"
)

func makeTollUsages(n int) []*model.TollUsage {
	usages := make([]*model.TollUsage, n)
	for i := range usages {
		usages[i] = &model.TollUsage{ID: uuid.NewString()}
	}
	return usages
}

func TestChunkTollUsages(t *testing.T) {
	testCases := []struct {
		name       string
		total      int
		size       int
		wantChunks []int
	}{
		{"空批次不產生chunk", 0, 50000, nil},
		{"小於chunk大小", 100, 50000, []int{100}},
		{"剛好等於chunk大小", 50000, 50000, []int{50000}},
		{"超過chunk大小有餘數", 120001, 50000, []int{50000, 50000, 20001}},
		{"整除無餘數", 100000, 50000, []int{50000, 50000}},
		{"chunk大小為一", 3, 1, []int{1, 1, 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			usages := makeTollUsages(tc.total)
			chunks := chunkTollUsages(usages, tc.size)

			if len(chunks) != len(tc.wantChunks) {
				t.Fatalf("預期 %d 個 chunk, got %d", len(tc.wantChunks), len(chunks))
			}
			for i, chunk := range chunks {
				if len(chunk) != tc.wantChunks[i] {
					t.Fatalf("chunk %d 預期 %d 筆, got %d", i, tc.wantChunks[i], len(chunk))
				}
			}
		})
	}
}

func TestChunkTollUsagesPreservesOrder(t *testing.T) {
	usages := makeTollUsages(250)
	chunks := chunkTollUsages(usages, 100)

	idx := 0
	for _, chunk := range chunks {
		for _, usage := range chunk {
			if usage.ID != usages[idx].ID {
				t.Fatalf("第 %d 筆紀錄順序不符", idx)
			}
			idx++
		}
	}
	if idx != len(usages) {
		t.Fatalf("chunk 總筆數 %d 與輸入 %d 不符", idx, len(usages))
	}
}
