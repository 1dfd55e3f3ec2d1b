package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

type step struct {
	name string
	run  func(ctx context.Context, rdb *redis.Client) (interface{}, error)
}

func main() {
	addr := flag.String("addr", "127.0.0.1:6379", "Server address")
	password := flag.String("password", "", "AUTH password")
	flag.Parse()

	rdb := redis.NewClient(&redis.Options{
		Addr:        *addr,
		Password:    *password,
		Protocol:    2,
		DialTimeout: 5 * time.Second,
	})
	defer rdb.Close()

	ctx := context.Background()
	steps := []step{
		{"PING", func(ctx context.Context, rdb *redis.Client) (interface{}, error) { return rdb.Ping(ctx).Result() }},
		{"SADD a 1 2 3", func(ctx context.Context, rdb *redis.Client) (interface{}, error) {
			return rdb.SAdd(ctx, "a", 1, 2, 3).Result()
		}},
		{"SADD b 2 3 4", func(ctx context.Context, rdb *redis.Client) (interface{}, error) {
			return rdb.SAdd(ctx, "b", 2, 3, 4).Result()
		}},
		{"SINTER a b", func(ctx context.Context, rdb *redis.Client) (interface{}, error) { return rdb.SInter(ctx, "a", "b").Result() }},
		{"SUNIONSTORE u a b", func(ctx context.Context, rdb *redis.Client) (interface{}, error) {
			return rdb.SUnionStore(ctx, "u", "a", "b").Result()
		}},
		{"SINTERCARD 2 a b", func(ctx context.Context, rdb *redis.Client) (interface{}, error) {
			return rdb.SInterCard(ctx, 0, "a", "b").Result()
		}},
		{"SRANDMEMBER u 2", func(ctx context.Context, rdb *redis.Client) (interface{}, error) {
			return rdb.SRandMemberN(ctx, "u", 2).Result()
		}},
		{"PFADD h x y", func(ctx context.Context, rdb *redis.Client) (interface{}, error) { return rdb.PFAdd(ctx, "h", "x", "y").Result() }},
		{"PFCOUNT h", func(ctx context.Context, rdb *redis.Client) (interface{}, error) { return rdb.PFCount(ctx, "h").Result() }},
		{"SWAPDB 0 1", func(ctx context.Context, rdb *redis.Client) (interface{}, error) { return rdb.Do(ctx, "SWAPDB", 0, 1).Result() }},
		{"DBSIZE", func(ctx context.Context, rdb *redis.Client) (interface{}, error) { return rdb.DBSize(ctx).Result() }},
		{"SWAPDB 0 1", func(ctx context.Context, rdb *redis.Client) (interface{}, error) { return rdb.Do(ctx, "SWAPDB", 0, 1).Result() }},
		{"SAVE", func(ctx context.Context, rdb *redis.Client) (interface{}, error) { return rdb.Save(ctx).Result() }},
		{"LASTSAVE", func(ctx context.Context, rdb *redis.Client) (interface{}, error) { return rdb.LastSave(ctx).Result() }},
		{"DEL a b u h", func(ctx context.Context, rdb *redis.Client) (interface{}, error) { return rdb.Del(ctx, "a", "b", "u", "h").Result() }},
	}

	failed := 0
	for _, s := range steps {
		fmt.Printf(">>> %s\n", s.name)
		res, err := s.run(ctx, rdb)
		if err != nil {
			fmt.Printf("<<< error: %v\n", err)
			failed++
			continue
		}
		fmt.Printf("<<< %v\n", res)
	}

	if failed > 0 {
		fmt.Printf("\n%d of %d steps failed\n", failed, len(steps))
		os.Exit(1)
	}
	fmt.Println("\nAll steps passed")
}
