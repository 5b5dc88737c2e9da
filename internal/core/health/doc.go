// Package health 实现健康快照客户端
//
// Client 从后端获取健康快照，快照不可用时退化为只取节点数。
// Store 持有最近一次快照，每次整体替换，发布后不再修改。
package health
