package vote

import (
	"fmt"
	"sync"

	"github.com/SlpAus/csd-vote-backend/internal/platform/database"
)

// tokenCacheKey 是Redis中已用token摘要集合的键名
// 它只是数据库vote_sessions表的镜像，用于提交流程的快速预检查
const tokenCacheKey = "vote:token_hashes"

var cacheMutex sync.Mutex

// InitializeTokenCache 在应用启动时清空并重建token缓存
func InitializeTokenCache() error {
	fmt.Println("正在初始化token重放缓存...")
	return rebuildTokenCacheFromDB()
}

// RecoverTokenCache 在Redis重启后从数据库重建token缓存
// 健康检查器在检测到run_id变化时调用它
func RecoverTokenCache() error {
	fmt.Println("正在从数据库重建token重放缓存...")
	return rebuildTokenCacheFromDB()
}

// checkTokenCache 查询一个token摘要是否已经出现在缓存中
func checkTokenCache(tokenHash string) (bool, error) {
	return database.RDB.SIsMember(database.Ctx, tokenCacheKey, tokenHash).Result()
}

// recordTokenInCache 在提交成功后把token摘要写入缓存
// 缓存写入失败不影响提交结果，只影响后续预检查的命中率
func recordTokenInCache(tokenHash string) {
	if !database.IsRedisHealthy() {
		return
	}
	if err := database.RDB.SAdd(database.Ctx, tokenCacheKey, tokenHash).Err(); err != nil {
		fmt.Printf("警告: 无法将token摘要写入缓存: %v\n", err)
	}
}

// rebuildTokenCacheFromDB 分批读取vote_sessions中的全部token摘要并写入Redis
func rebuildTokenCacheFromDB() error {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()

	// 1. 擦除旧的缓存数据
	if err := database.RDB.Del(database.Ctx, tokenCacheKey).Err(); err != nil {
		return fmt.Errorf("擦除旧的token缓存失败: %w", err)
	}

	// 2. 从数据库分批读取所有已存在的摘要
	const batchSize = 10000

	total := 0
	var lastProcessed string // 在十六进制摘要上分页，按字母顺序
	var batch []string

	for i := 1; ; i++ {
		batch = batch[:0]
		err := database.DB.Model(&VoteSession{}).
			Where("token_hash > ?", lastProcessed).
			Order("token_hash asc").
			Limit(batchSize).
			Pluck("token_hash", &batch).Error
		if err != nil {
			return fmt.Errorf("分批读取token摘要失败 (batch %d): %w", i, err)
		}

		if len(batch) > 0 {
			members := make([]interface{}, len(batch))
			for j, h := range batch {
				members[j] = h
			}
			if err := database.RDB.SAdd(database.Ctx, tokenCacheKey, members...).Err(); err != nil {
				return fmt.Errorf("批量写回Redis失败 (batch %d): %w", i, err)
			}
		}

		total += len(batch)
		if len(batch) < batchSize {
			break
		}
		lastProcessed = batch[len(batch)-1]
	}

	fmt.Printf("token重放缓存就绪，共加载 %d 条摘要。\n", total)
	return nil
}
