package artifacts

import (
	"encoding/json"
	"fmt"

	"content-forge/models"
)

// Merge 는 dst 의 복사본에 fragment 를 깊은 병합해 돌려준다. 중첩 맵은 키 단위로
// 병합하고, 슬라이스를 포함한 그 밖의 값은 통째로 교체한다. 인자는 수정하지 않는다.
func Merge(dst, fragment models.Artifacts) models.Artifacts {
	out := make(models.Artifacts, len(dst)+len(fragment))
	for k, v := range dst {
		out[k] = cloneValue(v)
	}
	for k, v := range fragment {
		out[k] = mergeValue(out[k], v)
	}
	return out
}

func mergeValue(cur, next any) any {
	nextMap, ok := asMap(next)
	if !ok {
		return cloneValue(next)
	}
	curMap, ok := asMap(cur)
	if !ok {
		return cloneValue(nextMap)
	}
	merged := make(map[string]any, len(curMap)+len(nextMap))
	for k, v := range curMap {
		merged[k] = v
	}
	for k, v := range nextMap {
		merged[k] = mergeValue(merged[k], v)
	}
	return merged
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case models.Artifacts:
		return map[string]any(t), true
	}
	return nil, false
}

func cloneValue(v any) any {
	if m, ok := asMap(v); ok {
		c := make(map[string]any, len(m))
		for k, e := range m {
			c[k] = cloneValue(e)
		}
		return c
	}
	if s, ok := v.([]any); ok {
		c := make([]any, len(s))
		for i, e := range s {
			c[i] = cloneValue(e)
		}
		return c
	}
	return v
}

// Fragment 는 타입이 있는 값을 JSON 으로 변환해 key 아래의 서브트리로 만든다.
// 저장되는 문서에는 맵, 슬라이스, 스칼라만 남는다.
func Fragment(key string, v any) (models.Artifacts, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s artifact: %w", key, err)
	}
	var tree any
	if err := json.Unmarshal(b, &tree); err != nil {
		return nil, fmt.Errorf("encode %s artifact: %w", key, err)
	}
	return models.Artifacts{key: tree}, nil
}

// Decode 는 key 아래의 서브트리를 out 으로 읽는다. 서브트리가 없으면 false 를 돌려준다.
func Decode(a models.Artifacts, key string, out any) (bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return false, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("decode %s artifact: %w", key, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, fmt.Errorf("decode %s artifact: %w", key, err)
	}
	return true, nil
}
