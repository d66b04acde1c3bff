package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Result 记录单次请求的 HTTP 结果，便于聚合统计。
type Result struct {
	Status int
	Body   string
	Err    error
}

// 并发正确性压测工具：
// 1) 超卖测试：N 个游客各建一车抢同一变体，成功下单数不得超过库存。
// 2) 串行化测试：对同一订单并发发同一个状态流转，恰好一个 200，其余 409/422。
func main() {
	baseURL := flag.String("base", "http://localhost:8080", "server base url")
	variantID := flag.Int("variant", 1, "product variant id")
	orderID := flag.Int("order", 0, "order id for the transition race (0 = skip)")
	newStatus := flag.String("status", "confirmed", "target status for the transition race")

	nUsers := flag.Int("users", 50, "distinct guest carts")
	concurrency := flag.Int("c", 25, "max concurrency")
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}

	fmt.Printf("start oversell test: variant=%d carts=%d concurrency=%d\n", *variantID, *nUsers, *concurrency)
	results := runCheckouts(client, *baseURL, uint(*variantID), *nUsers, *concurrency)
	printSummary("oversell", results)

	if *orderID > 0 {
		fmt.Printf("\nstart transition race: order=%d status=%s, %d requests\n", *orderID, *newStatus, *concurrency)
		results2 := runTransitions(client, *baseURL, *orderID, *newStatus, *concurrency)
		printSummary("transition_race", results2)
	}
}

// runCheckouts 每个“用户”走完整链路：加购一件 → 结账。
// 服务端库存是 version CAS 保护的，最终成功数应恰好等于初始库存。
func runCheckouts(client *http.Client, baseURL string, variantID uint, nUsers, concurrency int) []Result {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, nUsers)

	for i := 0; i < nUsers; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = checkoutOnce(client, baseURL, variantID)
		}(i)
	}

	wg.Wait()
	return results
}

func checkoutOnce(client *http.Client, baseURL string, variantID uint) Result {
	addRes, err := doPOST(client, baseURL+"/api/cart/items", map[string]any{
		"variant_id": variantID,
		"quantity":   1,
	}, nil)
	if err != nil {
		return Result{Err: err}
	}
	var addOut struct {
		Data struct {
			CartID string `json:"cart_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(addRes.Body), &addOut); err != nil || addOut.Data.CartID == "" {
		// 加购被拒（库存不足等）就把这一步的结果当成最终结果
		return addRes
	}

	res, err := doPOST(client, baseURL+"/api/checkout", map[string]any{
		"cart_id":        addOut.Data.CartID,
		"payment_method": "cod",
	}, nil)
	if err != nil {
		return Result{Err: err}
	}
	return res
}

// runTransitions 对同一订单并发发同一个流转请求。
func runTransitions(client *http.Client, baseURL string, orderID int, newStatus string, total int) []Result {
	var wg sync.WaitGroup
	results := make([]Result, total)

	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			res, err := doPUT(client, fmt.Sprintf("%s/api/orders/%d/status", baseURL, orderID), map[string]any{
				"status":        newStatus,
				"cancel_reason": "load test",
			})
			if err != nil {
				results[idx] = Result{Err: err}
				return
			}
			results[idx] = res
		}(i)
	}

	wg.Wait()
	return results
}

// printSummary 聚合输出不同状态码分布。
func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount := 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
	}
	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range []int{200, 400, 404, 409, 422, 429, 500} {
		if count[code] > 0 {
			fmt.Printf("  %d -> %d\n", code, count[code])
		}
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
}

func doPOST(client *http.Client, url string, body any, headers map[string]string) (Result, error) {
	return doJSON(client, http.MethodPost, url, body, headers)
}

func doPUT(client *http.Client, url string, body any) (Result, error) {
	return doJSON(client, http.MethodPut, url, body, nil)
}

func doJSON(client *http.Client, method, url string, body any, headers map[string]string) (Result, error) {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		return Result{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return Result{Status: resp.StatusCode, Body: string(b)}, nil
}
