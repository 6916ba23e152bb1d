package xdlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// =============================================================================
// etcd 传输
// =============================================================================

// etcdClient etcd 锁所需的最小接口，*clientv3.Client 实现此接口。
type etcdClient interface {
	Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error)
	Revoke(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error)
	TimeToLive(ctx context.Context, id clientv3.LeaseID, opts ...clientv3.LeaseOption) (*clientv3.LeaseTimeToLiveResponse, error)
	Txn(ctx context.Context) clientv3.Txn
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
}

var _ etcdClient = (*clientv3.Client)(nil)

// revokeTimeout 回收租约的独立超时，调用方 ctx 已取消时仍尝试回收
const revokeTimeout = 3 * time.Second

// etcdTransport 以事务实现两个原子操作：
//
//	acquire: If(CreateRevision(key) == 0) Then(Put(key, token, lease))
//	release: If(Value(key) == token) Then(Delete(key))
//
// 每次加锁授予一个新租约，事务失败或释放成功后回收。
// etcd 会把过短的 TTL 提升到服务端最小租约时长，因此 1 秒租约实际可能存活更久。
type etcdTransport struct {
	client etcdClient
}

func newEtcdTransport(client etcdClient) *etcdTransport {
	return &etcdTransport{client: client}
}

func (t *etcdTransport) Kind() Kind { return KindEtcd }

func (t *etcdTransport) ExecAcquire(ctx context.Context, key, token string, leaseSeconds int64) (int64, error) {
	grant, err := t.client.Grant(ctx, leaseSeconds)
	if err != nil {
		return 0, classifyEtcdError(err)
	}

	resp, err := t.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, token, clientv3.WithLease(grant.ID))).
		Commit()
	if err != nil {
		// 提交结果未知：回收租约会连带删除可能已写入的 key
		t.revoke(ctx, grant.ID)
		return 0, classifyEtcdError(err)
	}
	if !resp.Succeeded {
		t.revoke(ctx, grant.ID)
		return resultFailed, nil
	}
	return resultSuccess, nil
}

func (t *etcdTransport) ExecRelease(ctx context.Context, key, token string) (int64, error) {
	resp, err := t.client.Txn(ctx).
		If(clientv3.Compare(clientv3.Value(key), "=", token)).
		Then(clientv3.OpDelete(key, clientv3.WithPrevKV())).
		Commit()
	if err != nil {
		return 0, classifyEtcdError(err)
	}
	if !resp.Succeeded {
		return resultFailed, nil
	}
	if len(resp.Responses) == 0 {
		return 0, fmt.Errorf("%w: empty txn response", ErrUnexpectedResult)
	}
	del := resp.Responses[0].GetResponseDeleteRange()
	if del == nil {
		return 0, fmt.Errorf("%w: missing delete response", ErrUnexpectedResult)
	}
	for _, kv := range del.PrevKvs {
		if kv.Lease != 0 {
			t.revoke(ctx, clientv3.LeaseID(kv.Lease))
		}
	}
	return del.Deleted, nil
}

func (t *etcdTransport) Inspect(ctx context.Context, key string) (LeaseState, error) {
	resp, err := t.client.Get(ctx, key)
	if err != nil {
		return LeaseState{}, classifyEtcdError(err)
	}
	if len(resp.Kvs) == 0 {
		return LeaseState{}, nil
	}
	leaseID := resp.Kvs[0].Lease
	if leaseID == 0 {
		return LeaseState{Held: true}, nil
	}
	ttl, err := t.client.TimeToLive(ctx, clientv3.LeaseID(leaseID))
	if err != nil {
		return LeaseState{}, classifyEtcdError(err)
	}
	if ttl.TTL <= 0 {
		return LeaseState{}, nil
	}
	return LeaseState{Held: true, TTL: time.Duration(ttl.TTL) * time.Second}, nil
}

// revoke 尽力回收租约，失败时等待租约自然过期
func (t *etcdTransport) revoke(ctx context.Context, id clientv3.LeaseID) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), revokeTimeout)
	defer cancel()
	_, _ = t.client.Revoke(rctx, id)
}

// classifyEtcdError 将 etcd/gRPC 错误归类，保留原始错误链。
func classifyEtcdError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, clientv3.ErrNoAvailableEndpoints) {
		return fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
	}
	if errors.Is(err, rpctypes.ErrNoLeader) || errors.Is(err, rpctypes.ErrTimeout) {
		return fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
	}

	code := codes.Unknown
	var coder interface{ Code() codes.Code }
	if errors.As(err, &coder) {
		code = coder.Code()
	} else if s, ok := status.FromError(err); ok {
		code = s.Code()
	}
	switch code {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.ResourceExhausted:
		return fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", ErrScriptExecution, err)
	}
}
