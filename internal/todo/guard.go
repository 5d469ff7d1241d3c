package todo

// AuthorizeOwnerAction はリソース所有者と操作主体の一致を判定します。
// 一致しない場合は ErrForbidden を返します。
// リソースの取得は呼び出し側の責務です。先に取得して不存在（ErrNotFound）と
// 権限なし（ErrForbidden）を混同しないようにしてください。
func AuthorizeOwnerAction(resourceOwnerID, requesterID uint) error {
	if resourceOwnerID != requesterID {
		return ErrForbidden
	}
	return nil
}
